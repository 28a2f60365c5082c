package tool

import (
	"flag"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFourDigitToken checks the token is always four digits and stable.
func TestFourDigitToken(t *testing.T) {
	assert.Equal(t, "0000", FourDigitToken(nil))
	assert.Equal(t, "0065", FourDigitToken([]byte("A")))
	// 'A' + 'B'*31 = 65 + 2046
	assert.Equal(t, "2111", FourDigitToken([]byte("AB")))
	// negative signed bytes keep the absolute value
	assert.Equal(t, "0001", FourDigitToken([]byte{0xff}))

	raw := []byte("some auth token bytes")
	assert.Equal(t, FourDigitToken(raw), FourDigitToken(raw))
	assert.Len(t, FourDigitToken(raw), 4)
}

// TestGenerateID checks ids are positive and distinct.
func TestGenerateID(t *testing.T) {
	seen := make(map[int64]struct{})
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		require.Greater(t, id, int64(0))
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
	assert.Len(t, GenerateEndpointID(), 4)
}

// TestResolveFileInfos checks sizes are read from disk in order.
func TestResolveFileInfos(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.jpg")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(b, make([]byte, 12355), 0o644))

	infos, err := ResolveFileInfos([]string{b, a})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, int64(12355), infos[0].Size)
	assert.Equal(t, b, infos[0].Path)
	assert.Equal(t, int64(5), infos[1].Size)

	_, err = ResolveFileInfos([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
	_, err = ResolveFileInfos([]string{dir})
	assert.Error(t, err)
}

// TestMimeTypeForPath checks extension lookup and the fallback.
func TestMimeTypeForPath(t *testing.T) {
	assert.Equal(t, "image/jpeg", MimeTypeForPath("/usr/local/tmp/someFileName.jpg"))
	assert.Equal(t, "application/octet-stream", MimeTypeForPath("noext"))
}

// TestNextAvailablePath checks numbered suffixes are used for clashes.
func TestNextAvailablePath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "a.txt"), NextAvailablePath(dir, "a.txt"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "a-2.txt"), NextAvailablePath(dir, "a.txt"))
	assert.Equal(t, filepath.Join(dir, "a-2.txt"), NextAvailablePath(dir, "../a.txt"))
}

// TestLoadConfigCreatesDefault checks a missing file is created and env overrides apply.
func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("SHARE_PIN", "4321")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, "4321", cfg.Pin)
	assert.Equal(t, DefaultAcceptTimeout, cfg.AcceptTimeout)
	assert.NotEmpty(t, cfg.Alias)
}

// TestLoadConfigFromFile checks YAML values survive and env wins over the file.
func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := "alias: Desk\nlistenAddress: \":9000\"\nacceptTimeout: 30s\nautoAccept: false\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o644))
	t.Setenv("SHARE_LISTEN_ADDRESS", ":9100")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Desk", cfg.Alias)
	assert.Equal(t, ":9100", cfg.ListenAddress)
	assert.Equal(t, 30*time.Second, cfg.AcceptTimeout)
	assert.False(t, cfg.AutoAccept)
}

// TestParseFlags checks repeatable file flags and overrides.
func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := ParseFlags(fs, []string{"-sendTo", "10.0.0.2:53318", "-file", "a.jpg,b.jpg", "-file", "c.txt", "-usePin", "1111"})
	assert.Equal(t, "10.0.0.2:53318", flags.SendTo)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.txt"}, flags.SendFiles)

	cfg := defaultConfig()
	ApplyFlagOverrides(&cfg, flags)
	assert.Equal(t, "1111", cfg.Pin)
}

func TestShareInterfaceFlags(t *testing.T) {
	assert.True(t, ShareInterfaceFlags(net.FlagUp|net.FlagBroadcast))
	assert.True(t, ShareInterfaceFlags(net.FlagUp|net.FlagBroadcast|net.FlagMulticast))
	assert.False(t, ShareInterfaceFlags(net.FlagBroadcast|net.FlagMulticast))
	assert.False(t, ShareInterfaceFlags(net.FlagUp|net.FlagLoopback))
	assert.False(t, ShareInterfaceFlags(net.FlagUp|net.FlagPointToPoint))
}

func TestShareIPv4s(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("192.168.3.12"), Mask: net.CIDRMask(24, 32)},
		&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPAddr{IP: net.ParseIP("10.0.0.5")},
	}
	ips := ShareIPv4s(addrs)
	require.Len(t, ips, 1)
	assert.Equal(t, "192.168.3.12", ips[0].String())
}
