package types

import "time"

// AppConfig represents the application configuration loaded from config file.
// Environment variables (SHARE_*) override what the file says.
type AppConfig struct {
	Alias                    string        `yaml:"alias" env:"SHARE_ALIAS"`
	DeviceType               string        `yaml:"deviceType" env:"SHARE_DEVICE_TYPE"`
	ListenAddress            string        `yaml:"listenAddress" env:"SHARE_LISTEN_ADDRESS"`
	APIAddress               string        `yaml:"apiAddress" env:"SHARE_API_ADDRESS"`
	DownloadFolder           string        `yaml:"downloadFolder" env:"SHARE_DOWNLOAD_FOLDER"`
	AcceptTimeout            time.Duration `yaml:"acceptTimeout" env:"SHARE_ACCEPT_TIMEOUT"`
	CancellationOptimization bool          `yaml:"cancellationOptimization" env:"SHARE_CANCELLATION_OPTIMIZATION"`
	AutoAccept               bool          `yaml:"autoAccept" env:"SHARE_AUTO_ACCEPT"`
	Pin                      string        `yaml:"pin,omitempty" env:"SHARE_PIN"`
	AllowUnverifiedPeers     bool          `yaml:"allowUnverifiedPeers" env:"SHARE_ALLOW_UNVERIFIED_PEERS"`
	ProbeBeforeDial          bool          `yaml:"probeBeforeDial" env:"SHARE_PROBE_BEFORE_DIAL"`
	AnalyticsLogPath         string        `yaml:"analyticsLogPath,omitempty" env:"SHARE_ANALYTICS_LOG"`
	NotifySocket             string        `yaml:"notifySocket,omitempty" env:"SHARE_NOTIFY_SOCKET"`
	NotifyWS                 bool          `yaml:"notifyWS" env:"SHARE_NOTIFY_WS"`
	LogLevel                 string        `yaml:"logLevel" env:"SHARE_LOG_LEVEL"`
}

// Config holds runtime overrides from CLI flags
type Config struct {
	Log            string
	UseConfigPath  string
	UseListen      string
	UseAPI         string
	UseDownload    string
	UsePin         string
	UseAlias       string
	SkipAPI        bool
	ShowQRCode     bool
	SendTo         string
	SendText       string
	SendTextTitle  string
	SendFiles      []string
	SendWifiSSID   string
	SendWifiPass   string
	SendWifiHidden bool
	SelfShare      bool
}
