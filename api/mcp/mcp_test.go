package mcp_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliohq/shelf/api/mcp"
	shelflogger "github.com/foliohq/shelf/pkg/logger"
	"github.com/foliohq/shelf/pkg/retriever"
	testutils "github.com/foliohq/shelf/pkg/utils/test"
)

func TestMCP(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "MCP Suite")
}

var _ = Describe("NewServer", func() {
	var r *retriever.Retriever

	BeforeEach(func() {
		r = retriever.NewRetriever(
			testutils.NewMockStore(),
			testutils.NewMockEmbedder(),
			shelflogger.Nop(),
		)
	})

	It("creates a server with the search tool", func() {
		server, err := mcp.NewServer(mcp.Config{
			Retriever: r,
			Logger:    shelflogger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(server.Handler()).NotTo(BeNil())
	})

	It("requires a retriever", func() {
		_, err := mcp.NewServer(mcp.Config{
			Logger: shelflogger.Nop(),
		})
		Expect(err).To(HaveOccurred())
	})

	It("requires a logger", func() {
		_, err := mcp.NewServer(mcp.Config{
			Retriever: r,
		})
		Expect(err).To(HaveOccurred())
	})

	It("allows a noop server with no tools", func() {
		server, err := mcp.NewServer(mcp.Config{Noop: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(server).NotTo(BeNil())
	})
})
