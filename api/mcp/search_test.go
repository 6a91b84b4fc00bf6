package mcp

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliohq/shelf/pkg/store"
)

var _ = Describe("buildSearchOutput", func() {
	It("converts ranked results into the tool output shape", func() {
		results := []store.SearchResult{
			{
				DocumentChunk: store.DocumentChunk{
					ID:         "doc-a-0",
					DocumentID: "doc-a",
					FileName:   "notes.txt",
					Content:    "alpha",
					Index:      0,
				},
				Score:  0.9,
				Source: store.MatchMerged,
			},
			{
				DocumentChunk: store.DocumentChunk{
					ID:         "doc-b-2",
					DocumentID: "doc-b",
					Content:    "beta",
					Index:      2,
				},
				Score:  0.4,
				Source: store.MatchKeyword,
			},
		}

		output := buildSearchOutput("alpha beta", results)

		Expect(output.Query).To(Equal("alpha beta"))
		Expect(output.Count).To(Equal(2))
		Expect(output.Results[0].ChunkID).To(Equal("doc-a-0"))
		Expect(output.Results[0].Source).To(Equal("merged"))
		Expect(output.Results[1].Index).To(Equal(2))
		Expect(output.Results[1].Content).To(Equal("beta"))
	})

	It("produces an empty result list for no matches", func() {
		output := buildSearchOutput("nothing", nil)
		Expect(output.Count).To(Equal(0))
		Expect(output.Results).To(BeEmpty())
	})
})
