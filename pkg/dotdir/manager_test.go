package dotdir_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliohq/shelf/pkg/dotdir"
)

func TestDotdir(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dotdir Suite")
}

var _ = Describe("Manager", func() {
	var m *dotdir.Manager

	BeforeEach(func() {
		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("uses the override directory when provided", func() {
			tmp := GinkgoT().TempDir()
			override := filepath.Join(tmp, "custom")

			target, err := m.Target(override)
			Expect(err).NotTo(HaveOccurred())
			Expect(target).To(Equal(override))

			info, err := os.Stat(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("creates the override directory when missing", func() {
			tmp := GinkgoT().TempDir()
			override := filepath.Join(tmp, "nested", "shelf")

			target, err := m.Target(override)
			Expect(err).NotTo(HaveOccurred())

			info, err := os.Stat(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})
})
