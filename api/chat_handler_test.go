package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliohq/shelf/pkg/assembler"
	"github.com/foliohq/shelf/pkg/chat"
	"github.com/foliohq/shelf/pkg/ingest"
	shelflogger "github.com/foliohq/shelf/pkg/logger"
	"github.com/foliohq/shelf/pkg/llm"
	"github.com/foliohq/shelf/pkg/retriever"
	"github.com/foliohq/shelf/pkg/store"
	testutils "github.com/foliohq/shelf/pkg/utils/test"
)

// newChatTestServer builds a Server with a chatter backed by a mock generator.
func newChatTestServer(storer *testutils.MockStore, reply string) *Server {
	logger := shelflogger.Nop()
	embedder := testutils.NewMockEmbedder()

	ingestor, err := ingest.NewIngestor(ingest.Config{
		Store:    storer,
		Embedder: embedder,
		Logger:   logger,
	})
	Expect(err).NotTo(HaveOccurred())

	r := retriever.NewRetriever(storer, embedder, logger)
	chatter := chat.NewChatter(
		r,
		assembler.NewAssembler(assembler.DefaultBudget),
		testutils.NewMockGenerator(reply),
		retriever.Options{},
		logger,
	)

	server, err := NewServer(Config{
		ListenAddr: ":0",
		Storer:     storer,
		Retriever:  r,
		Ingestor:   ingestor,
		Chatter:    chatter,
	}, logger)
	Expect(err).NotTo(HaveOccurred())

	return server
}

var _ = Describe("handleChat", func() {
	It("returns 503 when no chatter is configured", func() {
		server := newTestServer(testutils.NewMockStore())

		resp := postJSON(server, "/chat", ChatRequest{Message: "hello"})
		Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
	})

	It("rejects an empty message", func() {
		server := newChatTestServer(testutils.NewMockStore(), "hi")

		resp := postJSON(server, "/chat", ChatRequest{Message: ""})
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
	})

	It("streams a context record followed by answer chunks", func() {
		storer := testutils.NewMockStore()
		storer.VectorResults = []store.SearchResult{
			searchResult("doc-a", 0, 0.8, store.MatchVector),
		}
		server := newChatTestServer(storer, "ok")

		resp := postJSON(server, "/chat", ChatRequest{Message: "what is in doc-a?"})
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("ndjson"))

		scanner := bufio.NewScanner(resp.Body)

		Expect(scanner.Scan()).To(BeTrue())
		var ctxRecord ChatContextRecord
		Expect(json.Unmarshal(scanner.Bytes(), &ctxRecord)).To(Succeed())
		Expect(ctxRecord.Type).To(Equal("context"))
		Expect(ctxRecord.HasContext).To(BeTrue())
		Expect(ctxRecord.Results).To(HaveLen(1))

		var answer strings.Builder
		done := false
		for scanner.Scan() {
			var chunk llm.StreamChunk
			Expect(json.Unmarshal(scanner.Bytes(), &chunk)).To(Succeed())
			answer.WriteString(chunk.Content)
			if chunk.Done {
				done = true
			}
		}
		Expect(done).To(BeTrue())
		Expect(answer.String()).To(Equal("ok"))
	})

	It("releases the generation stream when the client disconnects mid-answer", func() {
		ctx, cancel := context.WithCancel(context.Background())

		chunks := make(chan llm.StreamChunk)
		producerDone := make(chan struct{})
		go func() {
			defer close(producerDone)
			defer close(chunks)
			for {
				select {
				case chunks <- llm.StreamChunk{Content: "t"}:
				case <-ctx.Done():
					return
				}
			}
		}()

		// Reader side gone before the first record lands, as with an
		// aborted client connection.
		pr, pw := io.Pipe()
		Expect(pr.Close()).To(Succeed())

		server := newChatTestServer(testutils.NewMockStore(), "unused")
		server.writeChatStream(pw, &chat.Answer{Stream: chunks}, cancel)

		Eventually(producerDone).Should(BeClosed())
	})

	It("answers without context when retrieval is unavailable", func() {
		storer := testutils.NewMockStore()
		storer.FailVector = true
		storer.FailKeyword = true
		server := newChatTestServer(storer, "no context")

		resp := postJSON(server, "/chat", ChatRequest{Message: "anything"})
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		scanner := bufio.NewScanner(resp.Body)
		Expect(scanner.Scan()).To(BeTrue())

		var ctxRecord ChatContextRecord
		Expect(json.Unmarshal(scanner.Bytes(), &ctxRecord)).To(Succeed())
		Expect(ctxRecord.HasContext).To(BeFalse())
		Expect(ctxRecord.Results).To(BeEmpty())
	})
})
