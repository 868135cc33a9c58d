//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/focusshield/blockd/internal/browser"
	"github.com/focusshield/blockd/internal/config"
	"github.com/focusshield/blockd/internal/domain"
	"github.com/focusshield/blockd/internal/enforce"
	"github.com/focusshield/blockd/internal/hosts"
	"github.com/focusshield/blockd/internal/store"
	"github.com/focusshield/blockd/internal/urlpolicy"
	"github.com/focusshield/blockd/internal/usecase"
)

// fakeInventory is a mutable in-memory process inventory.
type fakeInventory struct {
	running map[string]bool
}

func (f *fakeInventory) Snapshot() (map[string]bool, error) {
	snap := make(map[string]bool, len(f.running))
	for k, v := range f.running {
		snap[k] = v
	}
	return snap, nil
}

func (f *fakeInventory) IsRunning(pid int) bool { return false }
func (f *fakeInventory) CurrentPID() int        { return os.Getpid() }

// fakeControl records kills and removes killed names from the inventory.
type fakeControl struct {
	inventory *fakeInventory
	killed    []string
	spawned   []string
}

func (f *fakeControl) Close(name string) error {
	delete(f.inventory.running, strings.ToLower(name))
	return nil
}

func (f *fakeControl) Kill(name string) error {
	f.killed = append(f.killed, name)
	delete(f.inventory.running, strings.ToLower(name))
	return nil
}

func (f *fakeControl) KillPID(pid int) error { return nil }

func (f *fakeControl) SpawnDetached(path string) error {
	f.spawned = append(f.spawned, path)
	return nil
}

// fakeBackend is an in-memory vendor policy store.
type fakeBackend struct {
	locations map[string]map[string]string
}

func (f *fakeBackend) ListOrdinals(location string) ([]string, error) {
	var names []string
	for name := range f.locations[location] {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeBackend) SetOrdinal(location, ordinal, pattern string) error {
	if f.locations[location] == nil {
		f.locations[location] = make(map[string]string)
	}
	f.locations[location][ordinal] = pattern
	return nil
}

func (f *fakeBackend) DeleteOrdinal(location, ordinal string) error {
	delete(f.locations[location], ordinal)
	return nil
}

func (f *fakeBackend) DeleteLocation(location string) error {
	delete(f.locations, location)
	return nil
}

type noopResolver struct{}

func (noopResolver) Flush() error { return nil }

var _ = Describe("Reconciliation", func() {
	var (
		tmpDir     string
		hostsPath  string
		cfg        config.Config
		specStore  *store.FileStore
		inventory  *fakeInventory
		control    *fakeControl
		backend    *fakeBackend
		reconciler *usecase.Reconciler
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		hostsPath = filepath.Join(tmpDir, "hosts")

		err := os.WriteFile(hostsPath, []byte("127.0.0.1 localhost\n"), 0644)
		Expect(err).NotTo(HaveOccurred())

		cfg = config.Default()
		cfg.HostsPath = hostsPath
		cfg.SpecPath = filepath.Join(tmpDir, "blocklist.json")
		cfg.Vendors = []config.Vendor{
			{Name: "chrome", Key: `chrome\URLBlocklist`},
			{Name: "edge", Key: `edge\URLBlocklist`},
		}
		cfg.CloseTimeout = 50 * time.Millisecond
		cfg.PollInterval = 5 * time.Millisecond
		cfg.SettleDelay = 0

		specStore = store.New(cfg.SpecPath)
		inventory = &fakeInventory{running: map[string]bool{"z.exe": true}}
		control = &fakeControl{inventory: inventory}
		backend = &fakeBackend{locations: make(map[string]map[string]string)}

		logger := zap.NewNop()
		hostsWriter := hosts.NewWriter(cfg.HostsPath, cfg.RedirectIP, cfg.MarkerStart, cfg.MarkerEnd, noopResolver{}, logger)
		urlWriter := urlpolicy.NewWriter(backend, cfg.Vendors, logger)
		appEnforcer := enforce.New(inventory, control, logger)
		recycler := browser.New(cfg, inventory, control, logger)

		reconciler = usecase.NewReconciler(specStore, hostsWriter, urlWriter, appEnforcer, recycler, logger)
	})

	Describe("one tick against a fresh spec", func() {
		BeforeEach(func() {
			err := specStore.Save(domain.BlockSpec{
				Domains:      []string{"x.com", "www.x.com"},
				URLPatterns:  []string{"y.com/a"},
				ProcessNames: []string{"z.exe"},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("drives all three surfaces to the desired state", func() {
			result := reconciler.RunOnce(context.Background(), false)

			Expect(result.Errors).To(BeEmpty())
			Expect(result.DomainsWritten).To(Equal(2))
			Expect(result.AppsKilled).To(Equal(1))

			content, err := os.ReadFile(hostsPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(ContainSubstring("127.0.0.1 localhost"))
			Expect(string(content)).To(ContainSubstring("127.0.0.1 x.com"))
			Expect(string(content)).To(ContainSubstring("127.0.0.1 www.x.com"))

			for _, v := range cfg.Vendors {
				Expect(backend.locations[v.Key]).To(Equal(map[string]string{"1": "y.com/a"}))
			}

			Expect(control.killed).To(Equal([]string{"z.exe"}))
		})

		It("is idempotent across consecutive ticks", func() {
			reconciler.RunOnce(context.Background(), false)
			first, err := os.ReadFile(hostsPath)
			Expect(err).NotTo(HaveOccurred())
			firstPolicies := backend.locations[cfg.Vendors[0].Key]

			reconciler.RunOnce(context.Background(), false)
			second, err := os.ReadFile(hostsPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(second).To(Equal(first))
			Expect(backend.locations[cfg.Vendors[0].Key]).To(Equal(firstPolicies))
		})

		It("picks up a spec edit on the next tick", func() {
			reconciler.RunOnce(context.Background(), false)

			err := specStore.Save(domain.BlockSpec{Domains: []string{"changed.com"}})
			Expect(err).NotTo(HaveOccurred())
			reconciler.RunOnce(context.Background(), false)

			content, err := os.ReadFile(hostsPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(ContainSubstring("127.0.0.1 changed.com"))
			Expect(string(content)).NotTo(ContainSubstring("x.com"))
			Expect(backend.locations[cfg.Vendors[0].Key]).To(BeEmpty())
		})
	})

	Describe("teardown", func() {
		It("restores the hosts file and empties the policy store", func() {
			err := specStore.Save(domain.BlockSpec{
				Domains:     []string{"x.com"},
				URLPatterns: []string{"y.com/a"},
			})
			Expect(err).NotTo(HaveOccurred())

			reconciler.RunOnce(context.Background(), false)
			Expect(reconciler.Teardown()).To(Succeed())

			content, err := os.ReadFile(hostsPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimRight(string(content), "\n")).To(Equal("127.0.0.1 localhost"))
			Expect(backend.locations).To(BeEmpty())
		})
	})
})
