package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliohq/shelf/pkg/store"
	testutils "github.com/foliohq/shelf/pkg/utils/test"
)

func searchResult(docID string, idx int, score float32, source store.MatchSource) store.SearchResult {
	return store.SearchResult{
		DocumentChunk: store.DocumentChunk{
			ID:         store.ChunkID(docID, idx),
			DocumentID: docID,
			FileName:   docID + ".txt",
			Content:    "chunk content",
			Index:      idx,
		},
		Score:  score,
		Source: source,
	}
}

func floorPtr(v float32) *float32 {
	return &v
}

func postJSON(server *Server, path string, body any) *http.Response {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.app.Test(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

var _ = Describe("handleSearch", func() {
	var storer *testutils.MockStore

	BeforeEach(func() {
		storer = testutils.NewMockStore()
	})

	It("rejects an empty query", func() {
		server := newTestServer(storer)

		resp := postJSON(server, "/search", SearchRequest{Query: ""})
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
	})

	It("returns merged hybrid results", func() {
		storer.VectorResults = []store.SearchResult{
			searchResult("doc-a", 0, 0.9, store.MatchVector),
		}
		storer.KeywordResults = []store.SearchResult{
			searchResult("doc-b", 1, 0.4, store.MatchKeyword),
		}
		server := newTestServer(storer)

		resp := postJSON(server, "/search", SearchRequest{Query: "chunk"})
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		var out SearchResponse
		Expect(json.Unmarshal(body, &out)).To(Succeed())
		Expect(out.Count).To(Equal(2))
		Expect(out.Results[0].ChunkID).To(Equal("doc-a-0"))
		Expect(out.Results[0].Score).To(BeNumerically("~", 0.9, 1e-6))
		Expect(out.Results[1].ChunkID).To(Equal("doc-b-1"))
	})

	It("honors the per-request limit and floor", func() {
		storer.VectorResults = []store.SearchResult{
			searchResult("doc-a", 0, 0.9, store.MatchVector),
			searchResult("doc-a", 1, 0.5, store.MatchVector),
			searchResult("doc-a", 2, 0.01, store.MatchVector),
		}
		server := newTestServer(storer)

		resp := postJSON(server, "/search", SearchRequest{
			Query:    "chunk",
			Limit:    1,
			MinScore: floorPtr(0.02),
		})
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		var out SearchResponse
		Expect(json.Unmarshal(body, &out)).To(Succeed())
		Expect(out.Count).To(Equal(1))
		Expect(out.Results[0].Score).To(BeNumerically("~", 0.9, 1e-6))
	})

	It("lets an explicit zero floor override the server default", func() {
		storer.VectorResults = []store.SearchResult{
			searchResult("doc-a", 0, 0.9, store.MatchVector),
			searchResult("doc-a", 1, 0.1, store.MatchVector),
		}
		server := newTestServer(storer)
		server.config.Retrieval.MinScore = 0.5

		resp := postJSON(server, "/search", SearchRequest{
			Query:    "chunk",
			MinScore: floorPtr(0),
		})
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		var out SearchResponse
		Expect(json.Unmarshal(body, &out)).To(Succeed())
		Expect(out.Count).To(Equal(2))

		// Omitting the floor keeps the server default.
		resp = postJSON(server, "/search", SearchRequest{Query: "chunk"})
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err = io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, &out)).To(Succeed())
		Expect(out.Count).To(Equal(1))
	})

	It("returns 503 when both retrieval paths fail", func() {
		storer.FailVector = true
		storer.FailKeyword = true
		server := newTestServer(storer)

		resp := postJSON(server, "/search", SearchRequest{Query: "chunk"})
		Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
	})

	It("still answers when one path fails", func() {
		storer.FailVector = true
		storer.KeywordResults = []store.SearchResult{
			searchResult("doc-b", 0, 0.3, store.MatchKeyword),
		}
		server := newTestServer(storer)

		resp := postJSON(server, "/search", SearchRequest{Query: "chunk"})
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		var out SearchResponse
		Expect(json.Unmarshal(body, &out)).To(Succeed())
		Expect(out.Count).To(Equal(1))
		Expect(out.Results[0].Source).To(Equal("keyword"))
	})
})

var _ = Describe("document handlers", func() {
	var storer *testutils.MockStore

	BeforeEach(func() {
		storer = testutils.NewMockStore()
	})

	Describe("handleIngest", func() {
		It("chunks and stores posted content", func() {
			server := newTestServer(storer)

			resp := postJSON(server, "/documents", IngestRequest{
				FileName: "notes.txt",
				Content:  "some text to ingest",
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			var out IngestResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.DocumentID).NotTo(BeEmpty())
			Expect(out.Chunks).To(BeNumerically(">", 0))
			Expect(storer.Chunks).To(HaveLen(out.Chunks))
		})

		It("rejects a missing file name", func() {
			server := newTestServer(storer)

			resp := postJSON(server, "/documents", IngestRequest{Content: "text"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("handleDeleteDocument", func() {
		It("removes a document's chunks", func() {
			storer.Chunks = []store.DocumentChunk{
				{ID: "doc-a-0", DocumentID: "doc-a", Content: "x", Index: 0},
				{ID: "doc-b-0", DocumentID: "doc-b", Content: "y", Index: 0},
			}
			server := newTestServer(storer)

			req, err := http.NewRequest(http.MethodDelete, "/documents/doc-a", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(storer.Chunks).To(HaveLen(1))
			Expect(storer.Chunks[0].DocumentID).To(Equal("doc-b"))
		})

		It("returns 404 for an unknown document", func() {
			server := newTestServer(storer)

			req, err := http.NewRequest(http.MethodDelete, "/documents/ghost", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("handleListIndexes", func() {
		It("returns the store's index metadata", func() {
			server := newTestServer(storer)

			req, err := http.NewRequest(http.MethodGet, "/indexes", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			var out struct {
				Count   int               `json:"count"`
				Indexes []store.IndexInfo `json:"indexes"`
			}
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Count).To(Equal(2))
		})
	})
})
