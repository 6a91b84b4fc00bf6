package sqlitevec_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/store"
	"github.com/foliohq/shelf/pkg/store/sqlitevec"
)

func TestSQLiteVecDriver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLiteVec Driver Suite")
}

var _ = Describe("Driver", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath: ":memory:",
			}, logger)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement store.Driver", func() {
			var _ store.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Context("with an open driver", func() {
		var (
			driver *sqlitevec.Driver
			ctx    context.Context
		)

		seedChunks := []store.DocumentChunk{
			{ID: "doc1-0", DocumentID: "doc1", FileName: "handbook.txt", Content: "annual leave policy", Index: 0, Embedding: []float32{1, 0, 0, 0}},
			{ID: "doc1-1", DocumentID: "doc1", FileName: "handbook.txt", Content: "expense report rules", Index: 1, Embedding: []float32{0, 1, 0, 0}},
			{ID: "doc2-0", DocumentID: "doc2", FileName: "faq.txt", Content: "public holidays and leave", Index: 0, Embedding: []float32{0.9, 0.1, 0, 0}},
		}

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			ctx = context.Background()
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		Describe("UpsertChunks", func() {
			It("should do nothing when given empty chunks", func() {
				Expect(driver.UpsertChunks(ctx, nil)).To(Succeed())
			})

			It("should store and count chunks", func() {
				Expect(driver.UpsertChunks(ctx, seedChunks)).To(Succeed())

				count, err := driver.CountChunks(ctx, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(count).To(Equal(3))

				count, err = driver.CountChunks(ctx, "doc1")
				Expect(err).NotTo(HaveOccurred())
				Expect(count).To(Equal(2))
			})

			It("should replace an existing chunk's embedding in place", func() {
				Expect(driver.UpsertChunks(ctx, seedChunks)).To(Succeed())

				updated := seedChunks[0]
				updated.Embedding = []float32{0, 0, 0, 1}
				Expect(driver.UpsertChunks(ctx, []store.DocumentChunk{updated})).To(Succeed())

				count, err := driver.CountChunks(ctx, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(count).To(Equal(3))

				chunks, err := driver.ListChunks(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(chunks[0].ID).To(Equal("doc1-0"))
				Expect(chunks[0].Embedding).To(Equal([]float32{0, 0, 0, 1}))
			})

			It("should store a chunk without an embedding", func() {
				Expect(driver.UpsertChunks(ctx, []store.DocumentChunk{
					{ID: "doc3-0", DocumentID: "doc3", Content: "pending embedding", Index: 0},
				})).To(Succeed())

				chunks, err := driver.ListChunks(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(chunks).To(HaveLen(1))
				Expect(chunks[0].HasEmbedding()).To(BeFalse())
			})

			It("should reject embeddings with the wrong dimension", func() {
				err := driver.UpsertChunks(ctx, []store.DocumentChunk{
					{ID: "bad-0", DocumentID: "bad", Content: "x", Index: 0, Embedding: []float32{1, 2}},
				})
				Expect(err).To(MatchError(store.ErrStore))
			})
		})

		Describe("VectorSearch", func() {
			BeforeEach(func() {
				Expect(driver.UpsertChunks(ctx, seedChunks)).To(Succeed())
			})

			It("should return nearest chunks ordered by similarity", func() {
				results, err := driver.VectorSearch(ctx, []float32{1, 0, 0, 0}, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(3))
				Expect(results[0].ID).To(Equal("doc1-0"))
				Expect(results[0].Score).To(BeNumerically(">=", results[1].Score))
				Expect(results[0].Source).To(Equal(store.MatchVector))
			})

			It("should respect k", func() {
				results, err := driver.VectorSearch(ctx, []float32{1, 0, 0, 0}, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
			})
		})

		Describe("KeywordSearch", func() {
			BeforeEach(func() {
				Expect(driver.UpsertChunks(ctx, seedChunks)).To(Succeed())
			})

			It("should match on query terms", func() {
				results, err := driver.KeywordSearch(ctx, "leave", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))
				for _, r := range results {
					Expect(r.Source).To(Equal(store.MatchKeyword))
					Expect(r.Score).To(BeNumerically(">=", 0))
					Expect(r.Score).To(BeNumerically("<", 1))
				}
			})

			It("should return nothing for an empty query", func() {
				results, err := driver.KeywordSearch(ctx, "  ", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(BeEmpty())
			})

			It("should not treat quote characters as FTS syntax", func() {
				_, err := driver.KeywordSearch(ctx, `leave" OR "policy`, 10)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Describe("DeleteDocument", func() {
			BeforeEach(func() {
				Expect(driver.UpsertChunks(ctx, seedChunks)).To(Succeed())
			})

			It("should remove all chunks and index rows for a document", func() {
				Expect(driver.DeleteDocument(ctx, "doc1")).To(Succeed())

				count, err := driver.CountChunks(ctx, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(count).To(Equal(1))

				results, err := driver.VectorSearch(ctx, []float32{1, 0, 0, 0}, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
				Expect(results[0].DocumentID).To(Equal("doc2"))
			})

			It("should return ErrNotFound for an unknown document", func() {
				Expect(driver.DeleteDocument(ctx, "ghost")).To(MatchError(store.ErrNotFound))
			})
		})

		Describe("ListIndexes", func() {
			It("should report both indexes with their metadata", func() {
				indexes, err := driver.ListIndexes(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(indexes).To(HaveLen(2))
				Expect(indexes[0].Name).To(Equal("chunk_vectors"))
				Expect(indexes[0].Dimensions).To(Equal(uint(4)))
				Expect(indexes[1].Name).To(Equal("chunk_fts"))
				Expect(indexes[1].Metric).To(Equal("bm25"))
			})
		})
	})
})
