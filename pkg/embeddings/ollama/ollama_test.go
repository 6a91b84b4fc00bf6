package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliohq/shelf/pkg/embeddings/ollama"
	"github.com/foliohq/shelf/pkg/store"
)

func TestOllamaEmbedder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Embedder Suite")
}

var _ = Describe("Embedder", func() {
	var (
		server *httptest.Server
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	It("returns the first embedding from the API response", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/embed"))

			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body["model"]).To(Equal("nomic-embed-text"))
			Expect(body["input"]).To(Equal("hello"))

			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2, 0.3}},
			})
		}))

		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		embedding, err := embedder.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(embedding).To(Equal([]float32{0.1, 0.2, 0.3}))
	})

	It("wraps non-200 responses in store.ErrEmbedding", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))

		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = embedder.Embed(ctx, "hello")
		Expect(err).To(MatchError(store.ErrEmbedding))
	})

	It("errors when the API returns no embeddings", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
		}))

		embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = embedder.Embed(ctx, "hello")
		Expect(err).To(MatchError(store.ErrEmbedding))
	})
})
