package assembler_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliohq/shelf/pkg/assembler"
	"github.com/foliohq/shelf/pkg/store"
)

func TestAssembler(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Assembler Suite")
}

var _ = Describe("Assembler", func() {
	result := func(id, content string) store.SearchResult {
		return store.SearchResult{
			DocumentChunk: store.DocumentChunk{ID: id, FileName: id + ".txt", Content: content},
			Score:         0.5,
		}
	}

	Describe("Assemble", func() {
		It("sets HasContext false for empty results", func() {
			a := assembler.NewAssembler(0)
			prompt := a.Assemble(nil, "what is the leave policy?", nil)

			Expect(prompt.HasContext).To(BeFalse())
			Expect(prompt.User).To(Equal("what is the leave policy?"))
			Expect(prompt.System).NotTo(BeEmpty())
		})

		It("includes chunk content in the system prompt", func() {
			a := assembler.NewAssembler(0)
			prompt := a.Assemble([]store.SearchResult{
				result("a", "employees accrue 25 days of leave"),
			}, "leave?", nil)

			Expect(prompt.HasContext).To(BeTrue())
			Expect(prompt.System).To(ContainSubstring("employees accrue 25 days of leave"))
			Expect(prompt.System).To(ContainSubstring("a.txt"))
		})

		It("preserves retriever ordering", func() {
			a := assembler.NewAssembler(0)
			prompt := a.Assemble([]store.SearchResult{
				result("first", "alpha content"),
				result("second", "beta content"),
				result("third", "gamma content"),
			}, "q", nil)

			first := strings.Index(prompt.System, "alpha content")
			second := strings.Index(prompt.System, "beta content")
			third := strings.Index(prompt.System, "gamma content")
			Expect(first).To(BeNumerically("<", second))
			Expect(second).To(BeNumerically("<", third))
		})

		It("stops admitting chunks once the budget is exhausted", func() {
			a := assembler.NewAssembler(25)
			prompt := a.Assemble([]store.SearchResult{
				result("a", strings.Repeat("x", 20)),
				result("b", strings.Repeat("y", 20)),
			}, "q", nil)

			Expect(prompt.HasContext).To(BeTrue())
			Expect(prompt.System).To(ContainSubstring("xxxx"))
			Expect(prompt.System).NotTo(ContainSubstring("yyyy"))
		})

		It("always admits the first chunk even when oversized", func() {
			a := assembler.NewAssembler(10)
			prompt := a.Assemble([]store.SearchResult{
				result("a", strings.Repeat("z", 100)),
			}, "q", nil)

			Expect(prompt.HasContext).To(BeTrue())
			Expect(prompt.System).To(ContainSubstring("zzzz"))
		})
	})
})
