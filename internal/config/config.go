// Package config holds the immutable runtime configuration.
// It is constructed once at process start and passed into every
// component constructor; no component reads ambient path constants.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Vendor names one browser vendor's policy location.
type Vendor struct {
	Name string `validate:"required"`

	// Key is the registry path (under HKLM) holding the ordinal
	// URLBlocklist values for this vendor.
	Key string `validate:"required"`
}

// Browser describes one browser executable the session recycler manages.
type Browser struct {
	// Process is the image name as it appears in the process inventory.
	Process string `validate:"required"`

	// LaunchPath is the executable path used for the detached relaunch.
	LaunchPath string `validate:"required"`
}

// Config is the full runtime configuration.
type Config struct {
	// HostsPath is the name-resolution override file.
	HostsPath string `validate:"required"`

	// RedirectIP is the loopback address blocked domains resolve to.
	RedirectIP string `validate:"required,ip"`

	// MarkerStart and MarkerEnd delimit the managed hosts-file region.
	MarkerStart string `validate:"required"`
	MarkerEnd   string `validate:"required,nefield=MarkerStart"`

	// SpecPath is the JSON file holding the desired block list.
	SpecPath string `validate:"required"`

	// LockPath is the daemon PID lock file.
	LockPath string `validate:"required"`

	// LogPath receives daemon-mode logs.
	LogPath string `validate:"required"`

	// Interval between reconciliation ticks.
	Interval time.Duration `validate:"required,min=1s"`

	// CloseTimeout bounds the wait for browsers to exit after the
	// graceful-close pass.
	CloseTimeout time.Duration `validate:"required,min=100ms"`

	// PollInterval is how often browser liveness is re-checked while
	// waiting for the graceful close.
	PollInterval time.Duration `validate:"required,min=10ms"`

	// SettleDelay is the pause between the force-kill pass and relaunch.
	SettleDelay time.Duration `validate:"min=0"`

	// Vendors are the browser policy locations the URL writer owns.
	Vendors []Vendor `validate:"required,min=1,dive"`

	// Browsers are the executables the session recycler restarts.
	Browsers []Browser `validate:"required,min=1,dive"`

	// TaskName is the scheduled-task / run-key name used for autostart.
	TaskName string `validate:"required"`
}

// Default returns the production configuration for the target machine.
func Default() Config {
	dataDir := filepath.Join(programData(), "blockd")
	sysRoot := systemRoot()

	return Config{
		HostsPath:    filepath.Join(sysRoot, "System32", "drivers", "etc", "hosts"),
		RedirectIP:   "127.0.0.1",
		MarkerStart:  "# === WEBSITE BLOCKER START ===",
		MarkerEnd:    "# === WEBSITE BLOCKER END ===",
		SpecPath:     filepath.Join(dataDir, "blocklist.json"),
		LockPath:     filepath.Join(dataDir, "blockd.pid"),
		LogPath:      filepath.Join(dataDir, "blockd.log"),
		Interval:     30 * time.Second,
		CloseTimeout: 5 * time.Second,
		PollInterval: 250 * time.Millisecond,
		SettleDelay:  time.Second,
		Vendors: []Vendor{
			{Name: "chrome", Key: `SOFTWARE\Policies\Google\Chrome\URLBlocklist`},
			{Name: "edge", Key: `SOFTWARE\Policies\Microsoft\Edge\URLBlocklist`},
			{Name: "brave", Key: `SOFTWARE\Policies\BraveSoftware\Brave\URLBlocklist`},
		},
		Browsers: []Browser{
			{Process: "chrome.exe", LaunchPath: `C:\Program Files\Google\Chrome\Application\chrome.exe`},
			{Process: "msedge.exe", LaunchPath: `C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`},
			{Process: "brave.exe", LaunchPath: `C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`},
		},
		TaskName: "WebsiteAppBlocker",
	}
}

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// BrowserProcesses returns the process names of all managed browsers.
func (c Config) BrowserProcesses() []string {
	names := make([]string, len(c.Browsers))
	for i, b := range c.Browsers {
		names[i] = b.Process
	}
	return names
}

func programData() string {
	if v := os.Getenv("ProgramData"); v != "" {
		return v
	}
	return `C:\ProgramData`
}

func systemRoot() string {
	if v := os.Getenv("SystemRoot"); v != "" {
		return v
	}
	return `C:\Windows`
}
