package autostart

import (
	"errors"

	"golang.org/x/sys/windows/registry"
)

const runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// RegistryRunKey implements RunKeyStore over HKCU's Run key.
type RegistryRunKey struct{}

// NewRegistryRunKey creates the real run-key store.
func NewRegistryRunKey() *RegistryRunKey {
	return &RegistryRunKey{}
}

// Set writes the logon command under the given value name.
func (r *RegistryRunKey) Set(name, command string) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	return k.SetStringValue(name, command)
}

// Delete removes the value. Missing value is not an error.
func (r *RegistryRunKey) Delete(name string) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil
		}
		return err
	}
	defer k.Close()

	if err := k.DeleteValue(name); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return err
	}
	return nil
}

// Get reads the value, reporting whether it exists.
func (r *RegistryRunKey) Get(name string) (string, bool) {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return "", false
	}
	defer k.Close()

	value, _, err := k.GetStringValue(name)
	if err != nil {
		return "", false
	}
	return value, true
}

// Ensure RegistryRunKey implements RunKeyStore.
var _ RunKeyStore = (*RegistryRunKey)(nil)
