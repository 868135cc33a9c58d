package infra

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/windows/registry"

	"github.com/focusshield/blockd/internal/domain"
)

// RegistryPolicyBackend implements domain.PolicyBackend over HKLM.
// Each location is a vendor policy key (e.g. Chrome's URLBlocklist)
// holding string values named "1".."N".
type RegistryPolicyBackend struct {
	root registry.Key
}

// NewRegistryPolicyBackend creates a backend rooted at HKEY_LOCAL_MACHINE.
func NewRegistryPolicyBackend() domain.PolicyBackend {
	return &RegistryPolicyBackend{root: registry.LOCAL_MACHINE}
}

// ListOrdinals returns the value names present at the vendor location.
// A missing key reads as empty: nothing is blocked there yet.
func (b *RegistryPolicyBackend) ListOrdinals(location string) ([]string, error) {
	k, err := registry.OpenKey(b.root, location, registry.QUERY_VALUE)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer k.Close()

	return k.ReadValueNames(0)
}

// SetOrdinal writes pattern under the ordinal value name, creating the
// location if needed.
func (b *RegistryPolicyBackend) SetOrdinal(location, ordinal, pattern string) error {
	k, _, err := registry.CreateKey(b.root, location, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	return k.SetStringValue(ordinal, pattern)
}

// DeleteOrdinal removes one ordinal value. Missing value or key is not
// an error.
func (b *RegistryPolicyBackend) DeleteOrdinal(location, ordinal string) error {
	k, err := registry.OpenKey(b.root, location, registry.SET_VALUE)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	defer k.Close()

	if err := k.DeleteValue(ordinal); err != nil && !isNotExist(err) {
		return err
	}
	return nil
}

// DeleteLocation removes the (empty) vendor key itself.
func (b *RegistryPolicyBackend) DeleteLocation(location string) error {
	err := registry.DeleteKey(b.root, location)
	if err != nil && !isNotExist(err) {
		return err
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, registry.ErrNotExist) || errors.Is(err, fs.ErrNotExist)
}

// Ensure RegistryPolicyBackend implements domain.PolicyBackend.
var _ domain.PolicyBackend = (*RegistryPolicyBackend)(nil)
