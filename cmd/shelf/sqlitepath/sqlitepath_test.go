package sqlitepath

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSQLitePath(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLite Path Suite")
}

var _ = Describe("Resolve", func() {
	var (
		origHome   string
		origXDG    string
		origSQLite string
		origCwd    string
	)

	BeforeEach(func() {
		origHome = os.Getenv("HOME")
		origXDG = os.Getenv("XDG_DATA_HOME")
		origSQLite = os.Getenv("SHELF_SQLITE")
		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.Setenv("HOME", origHome)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", origXDG)).To(Succeed())
		Expect(os.Setenv("SHELF_SQLITE", origSQLite)).To(Succeed())
		Expect(os.Chdir(origCwd)).To(Succeed())
	})

	It("prefers the explicit override", func() {
		Expect(os.Setenv("SHELF_SQLITE", "/tmp/env.db")).To(Succeed())

		path, err := Resolve("/tmp/override.db", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/override.db"))
	})

	It("falls back to SHELF_SQLITE when set", func() {
		Expect(os.Setenv("SHELF_SQLITE", "/tmp/env.db")).To(Succeed())

		path, err := Resolve("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/env.db"))
	})

	It("resolves a local .shelf/shelf.db when present", func() {
		Expect(os.Setenv("SHELF_SQLITE", "")).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())

		tmpDir, err := os.MkdirTemp("", "shelf-cwd-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(tmpDir)
		})

		dbDir := filepath.Join(tmpDir, ".shelf")
		Expect(os.MkdirAll(dbDir, 0o755)).To(Succeed())
		dbPath := filepath.Join(dbDir, "shelf.db")
		Expect(os.WriteFile(dbPath, []byte{}, 0o600)).To(Succeed())

		Expect(os.Chdir(tmpDir)).To(Succeed())

		path, err := Resolve("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(".shelf", "shelf.db")))
	})

	It("defaults to the resolved .shelf/ directory when no database exists", func() {
		Expect(os.Setenv("SHELF_SQLITE", "")).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())

		configDir, err := os.MkdirTemp("", "shelf-config-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(configDir)
		})

		path, err := Resolve("", configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(configDir, "shelf.db")))
	})
})
