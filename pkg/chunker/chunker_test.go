package chunker_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliohq/shelf/pkg/chunker"
)

func TestChunker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chunker Suite")
}

var _ = Describe("Policy", func() {
	Describe("Validate", func() {
		It("accepts a valid policy", func() {
			Expect(chunker.Policy{ChunkSize: 100, Overlap: 10}.Validate()).To(Succeed())
		})

		It("accepts zero overlap", func() {
			Expect(chunker.Policy{ChunkSize: 100, Overlap: 0}.Validate()).To(Succeed())
		})

		It("rejects a non-positive chunk size", func() {
			err := chunker.Policy{ChunkSize: 0, Overlap: 0}.Validate()
			Expect(err).To(MatchError(chunker.ErrInvalidPolicy))
		})

		It("rejects negative overlap", func() {
			err := chunker.Policy{ChunkSize: 10, Overlap: -1}.Validate()
			Expect(err).To(MatchError(chunker.ErrInvalidPolicy))
		})

		It("rejects overlap equal to chunk size", func() {
			err := chunker.Policy{ChunkSize: 10, Overlap: 10}.Validate()
			Expect(err).To(MatchError(chunker.ErrInvalidPolicy))
		})

		It("rejects overlap larger than chunk size", func() {
			err := chunker.Policy{ChunkSize: 10, Overlap: 20}.Validate()
			Expect(err).To(MatchError(chunker.ErrInvalidPolicy))
		})
	})
})

var _ = Describe("Chunk", func() {
	It("produces the documented windows for a small input", func() {
		pieces, err := chunker.Chunk("0123456789", chunker.Policy{ChunkSize: 4, Overlap: 1})
		Expect(err).NotTo(HaveOccurred())

		contents := make([]string, len(pieces))
		for i, p := range pieces {
			contents[i] = p.Content
		}
		Expect(contents).To(Equal([]string{"0123", "3456", "6789"}))
	})

	It("shares exactly the overlap between consecutive pieces", func() {
		overlap := 5
		pieces, err := chunker.Chunk(strings.Repeat("abcdefgh", 20), chunker.Policy{ChunkSize: 32, Overlap: overlap})
		Expect(err).NotTo(HaveOccurred())
		Expect(len(pieces)).To(BeNumerically(">", 1))

		for i := 0; i < len(pieces)-1; i++ {
			tail := pieces[i].Content[len(pieces[i].Content)-overlap:]
			head := pieces[i+1].Content[:overlap]
			Expect(tail).To(Equal(head))
		}
	})

	It("yields no pieces for empty text", func() {
		pieces, err := chunker.Chunk("", chunker.Policy{ChunkSize: 4, Overlap: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(BeEmpty())
	})

	It("yields one piece equal to the whole text when text is shorter than the chunk size", func() {
		pieces, err := chunker.Chunk("short", chunker.Policy{ChunkSize: 100, Overlap: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(HaveLen(1))
		Expect(pieces[0].Content).To(Equal("short"))
		Expect(pieces[0].Index).To(Equal(0))
	})

	It("emits the final shorter piece instead of dropping or padding it", func() {
		pieces, err := chunker.Chunk("0123456789ab", chunker.Policy{ChunkSize: 5, Overlap: 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(pieces).To(HaveLen(3))
		Expect(pieces[2].Content).To(Equal("ab"))
	})

	It("assigns zero-based contiguous indices", func() {
		pieces, err := chunker.Chunk(strings.Repeat("x", 100), chunker.Policy{ChunkSize: 10, Overlap: 2})
		Expect(err).NotTo(HaveOccurred())
		for i, p := range pieces {
			Expect(p.Index).To(Equal(i))
		}
	})

	It("never emits a piece larger than the chunk size", func() {
		pieces, err := chunker.Chunk(strings.Repeat("y", 333), chunker.Policy{ChunkSize: 50, Overlap: 7})
		Expect(err).NotTo(HaveOccurred())
		for _, p := range pieces {
			Expect(len(p.Content)).To(BeNumerically("<=", 50))
		}
	})

	It("produces ceil((L-overlap)/(chunkSize-overlap)) pieces for L > overlap", func() {
		chunkSize, overlap := 40, 10
		for _, length := range []int{11, 40, 41, 100, 257} {
			pieces, err := chunker.Chunk(strings.Repeat("z", length), chunker.Policy{ChunkSize: chunkSize, Overlap: overlap})
			Expect(err).NotTo(HaveOccurred())

			stride := chunkSize - overlap
			want := (length - overlap + stride - 1) / stride
			if want < 1 {
				want = 1
			}
			Expect(pieces).To(HaveLen(want), "length %d", length)
		}
	})

	It("is idempotent for identical input and policy", func() {
		text := strings.Repeat("the quick brown fox ", 50)
		p := chunker.Policy{ChunkSize: 64, Overlap: 16}

		first, err := chunker.Chunk(text, p)
		Expect(err).NotTo(HaveOccurred())
		second, err := chunker.Chunk(text, p)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
	})

	It("does not split multi-byte characters", func() {
		pieces, err := chunker.Chunk(strings.Repeat("héllo wörld ", 10), chunker.Policy{ChunkSize: 7, Overlap: 2})
		Expect(err).NotTo(HaveOccurred())
		for _, p := range pieces {
			Expect(strings.ToValidUTF8(p.Content, "")).To(Equal(p.Content))
		}
	})
})

var _ = Describe("ChunkDocument", func() {
	It("stamps chunks with stable IDs and source metadata", func() {
		chunks, err := chunker.ChunkDocument("doc-1", "handbook.pdf", "0123456789", chunker.Policy{ChunkSize: 4, Overlap: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(3))

		Expect(chunks[0].ID).To(Equal("doc-1-0"))
		Expect(chunks[1].ID).To(Equal("doc-1-1"))
		Expect(chunks[2].ID).To(Equal("doc-1-2"))

		for i, c := range chunks {
			Expect(c.DocumentID).To(Equal("doc-1"))
			Expect(c.FileName).To(Equal("handbook.pdf"))
			Expect(c.Index).To(Equal(i))
			Expect(c.HasEmbedding()).To(BeFalse())
		}
	})

	It("propagates policy validation errors", func() {
		_, err := chunker.ChunkDocument("doc-1", "f", "text", chunker.Policy{ChunkSize: 3, Overlap: 3})
		Expect(err).To(MatchError(chunker.ErrInvalidPolicy))
	})
})
