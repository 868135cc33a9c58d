package infra

import (
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// IsElevated reports whether the current process runs with
// administrator privileges. Hosts-file and HKLM policy writes require
// elevation; callers are expected to check before touching the core.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// RelaunchElevated re-launches the current executable with the same
// arguments through the UAC "runas" verb and returns. The caller is
// expected to exit afterwards; the elevated copy takes over.
func RelaunchElevated() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	verb, err := syscall.UTF16PtrFromString("runas")
	if err != nil {
		return err
	}
	exePtr, err := syscall.UTF16PtrFromString(exe)
	if err != nil {
		return err
	}
	args, err := syscall.UTF16PtrFromString(quoteArgs(os.Args[1:]))
	if err != nil {
		return err
	}

	return windows.ShellExecute(0, verb, exePtr, args, nil, windows.SW_HIDE)
}

func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			quoted[i] = `"` + a + `"`
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}
