package tool

import (
	"flag"
	"os"
	"strings"

	"github.com/moyoez/sharesession/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	return ParseFlags(flag.CommandLine, os.Args[1:])
}

// ParseFlags parses args into a flag set. Split out from SetFlags for tests.
func ParseFlags(fs *flag.FlagSet, args []string) types.Config {
	var cfg types.Config
	fs.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	fs.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	fs.StringVar(&cfg.UseListen, "useListen", "", "override the address incoming shares are accepted on")
	fs.StringVar(&cfg.UseAPI, "useAPI", "", "override the local status API address")
	fs.StringVar(&cfg.UseDownload, "useDownloadFolder", "", "override the folder received files are written to")
	fs.StringVar(&cfg.UsePin, "usePin", "", "pin both devices use for paired key verification")
	fs.StringVar(&cfg.UseAlias, "useAlias", "", "specify alias for the device")
	fs.BoolVar(&cfg.SkipAPI, "skipAPI", false, "do not start the local status API")
	fs.BoolVar(&cfg.ShowQRCode, "qr", false, "print the listen address as a QR code")
	fs.StringVar(&cfg.SendTo, "sendTo", "", "peer address (host:port); when set, send and exit")
	fs.StringVar(&cfg.SendText, "text", "", "text body to send")
	fs.StringVar(&cfg.SendTextTitle, "textTitle", "", "title of the text attachment")
	fs.Func("file", "file to send (repeatable)", func(v string) error {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.SendFiles = append(cfg.SendFiles, p)
			}
		}
		return nil
	})
	fs.StringVar(&cfg.SendWifiSSID, "wifiSSID", "", "wifi network name to send")
	fs.StringVar(&cfg.SendWifiPass, "wifiPassword", "", "wifi password to send")
	fs.BoolVar(&cfg.SendWifiHidden, "wifiHidden", false, "the wifi network is hidden")
	fs.BoolVar(&cfg.SelfShare, "selfShare", false, "the peer is one of your own devices and accepts automatically")
	_ = fs.Parse(args)
	return cfg
}
