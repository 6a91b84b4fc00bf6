package chat_test

import (
	"context"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/assembler"
	"github.com/foliohq/shelf/pkg/chat"
	"github.com/foliohq/shelf/pkg/retriever"
	"github.com/foliohq/shelf/pkg/store"
	testutils "github.com/foliohq/shelf/pkg/utils/test"
)

func TestChat(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chat Suite")
}

var _ = Describe("Chatter", func() {
	var (
		mockStore *testutils.MockStore
		embedder  *testutils.MockEmbedder
		generator *testutils.MockGenerator
		chatter   *chat.Chatter
		ctx       context.Context
	)

	BeforeEach(func() {
		mockStore = testutils.NewMockStore()
		embedder = testutils.NewMockEmbedder()
		generator = testutils.NewMockGenerator("ok")

		r := retriever.NewRetriever(mockStore, embedder, zap.NewNop())
		a := assembler.NewAssembler(0)
		chatter = chat.NewChatter(r, a, generator, retriever.Options{Limit: 5}, zap.NewNop())
		ctx = context.Background()
	})

	It("grounds the answer on retrieved chunks", func() {
		mockStore.VectorResults = []store.SearchResult{
			{
				DocumentChunk: store.DocumentChunk{ID: "a-0", DocumentID: "a", FileName: "hb.txt", Content: "25 days of leave"},
				Score:         0.9,
				Source:        store.MatchVector,
			},
		}

		answer, err := chatter.Ask(ctx, "how much leave?", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.HasContext).To(BeTrue())
		Expect(answer.Results).To(HaveLen(1))
		Expect(generator.LastSystem).To(ContainSubstring("25 days of leave"))
		Expect(generator.LastUser).To(Equal("how much leave?"))

		var reply strings.Builder
		for chunk := range answer.Stream {
			reply.WriteString(chunk.Content)
		}
		Expect(reply.String()).To(Equal("ok"))
	})

	It("answers without context when nothing matches", func() {
		answer, err := chatter.Ask(ctx, "anything?", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.HasContext).To(BeFalse())
		Expect(answer.Results).To(BeEmpty())
	})

	It("degrades to an empty-context answer when retrieval is unavailable", func() {
		mockStore.FailVector = true
		mockStore.FailKeyword = true

		answer, err := chatter.Ask(ctx, "anything?", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.HasContext).To(BeFalse())
	})

	It("surfaces generator start failures", func() {
		generator.Fail = true

		_, err := chatter.Ask(ctx, "anything?", nil)
		Expect(err).To(HaveOccurred())
	})
})
