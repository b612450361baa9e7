package repomanager

import (
	"context"
	"database/sql"

	"github.com/dverbin/audiochat/internal/dbx"
	"github.com/dverbin/audiochat/internal/server/repositories/files"
	"github.com/dverbin/audiochat/internal/server/repositories/refreshtokens"
	"github.com/dverbin/audiochat/internal/server/repositories/transcripts"
	"github.com/dverbin/audiochat/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Files(db dbx.DBTX) files.Repository
	Transcripts(db dbx.DBTX) transcripts.Repository
}
