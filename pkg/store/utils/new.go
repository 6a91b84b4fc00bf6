package storeutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/foliohq/shelf/pkg/store"
	"github.com/foliohq/shelf/pkg/store/inmemory"
	"github.com/foliohq/shelf/pkg/store/qdrant"
	"github.com/foliohq/shelf/pkg/store/sqlitevec"
)

type NewDriverOpts struct {
	ProviderType string
	SQLitePath   string
	QdrantHost   string
	QdrantPort   int
	Collection   string
	Dimensions   uint
	Logger       *zap.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (store.Driver, error) {
	switch o.ProviderType {
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.SQLitePath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:           o.QdrantHost,
			Port:           o.QdrantPort,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "memory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported document store provider: %s", o.ProviderType)
	}
}
