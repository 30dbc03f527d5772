package store

import (
	"context"
	"fmt"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	mongodb "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/database/mongo"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/database/mysql"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/database/sqlite"
)

// Open builds the Store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	switch cfg.Store.Driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite":
		db, err := sqlite.Open(&cfg.Databases.SQLite)
		if err != nil {
			return nil, err
		}
		return NewGormStore(ctx, db)
	case "mysql":
		db, err := mysql.GetDB(&cfg.Databases.MySQL)
		if err != nil {
			return nil, err
		}
		return NewGormStore(ctx, db)
	case "mongo":
		client, db, err := mongodb.Connect(ctx, &cfg.Databases.MongoDB)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(ctx, client, db)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
