package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hobbyshelf/hobbyshelf-server/internal/backup"
)

func (s *Server) registerAdminBackupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createBackup",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/backups",
		Summary:       "Create backup",
		Description:   "Exports every table into a snapshot file in the backup directory",
		Tags:          []string{"Admin", "Backup"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBackups",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/backups",
		Summary:     "List backups",
		Description: "Lists stored snapshots, newest first",
		Tags:        []string{"Admin", "Backup"},
	}, s.handleListBackups)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSafetyBackups",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/backups/safety",
		Summary:     "List safety backups",
		Description: "Lists database copies taken before each restore",
		Tags:        []string{"Admin", "Backup"},
	}, s.handleListSafetyBackups)

	huma.Register(s.api, huma.Operation{
		OperationID:  "importBackup",
		Method:       http.MethodPost,
		Path:         "/api/v1/admin/backups/import",
		Summary:      "Import uploaded snapshot",
		Description:  "Restores from a snapshot sent as the request body. Requires confirm=true.",
		Tags:         []string{"Admin", "Backup"},
		MaxBodyBytes: MaxUploadSize,
	}, s.handleImportBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBackup",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/backups/{name}",
		Summary:     "Get backup details",
		Tags:        []string{"Admin", "Backup"},
	}, s.handleGetBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "downloadBackup",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/backups/{name}/download",
		Summary:     "Download backup",
		Tags:        []string{"Admin", "Backup"},
	}, s.handleDownloadBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "restoreBackup",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/backups/{name}/restore",
		Summary:     "Restore from backup",
		Description: "Replaces live data with a stored snapshot. A safety copy of the database is taken first.",
		Tags:        []string{"Admin", "Backup"},
	}, s.handleRestoreBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBackup",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/backups/{name}",
		Summary:     "Delete backup",
		Tags:        []string{"Admin", "Backup"},
	}, s.handleDeleteBackup)
}

// === DTOs ===

// CreateBackupInput is the Huma input for creating a backup.
type CreateBackupInput struct {
	Body struct {
		Compression backup.Compression `json:"compression,omitempty" enum:"none,gzip,zip" doc:"Container format (default gzip)"`
	}
}

// CreateBackupOutput is the Huma output for creating a backup.
type CreateBackupOutput struct {
	Body *backup.CreateResult
}

// BackupsResponse contains stored snapshots.
type BackupsResponse struct {
	Backups []backup.SnapshotInfo `json:"backups" doc:"Snapshots"`
}

// ListBackupsOutput is the Huma output for listing backups.
type ListBackupsOutput struct {
	Body BackupsResponse
}

// BackupNameInput identifies a stored snapshot.
type BackupNameInput struct {
	Name string `path:"name" doc:"Snapshot file name"`
}

// GetBackupOutput is the Huma output for getting a backup.
type GetBackupOutput struct {
	Body *backup.SnapshotInfo
}

// RestoreRequest is the request body for restoring from a stored snapshot.
type RestoreRequest struct {
	Confirm bool     `json:"confirm" doc:"Must be true; live data is replaced"`
	Tables  []string `json:"tables,omitempty" doc:"Restore only these tables"`
}

// RestoreInput is the Huma input for restoring from a stored snapshot.
type RestoreInput struct {
	Name string `path:"name" doc:"Snapshot file name"`
	Body RestoreRequest
}

// ImportBackupInput carries an uploaded snapshot.
type ImportBackupInput struct {
	Format  backup.Compression `query:"format" enum:"none,gzip,zip" default:"gzip" doc:"Container format of the body"`
	Confirm bool               `query:"confirm" doc:"Must be true; live data is replaced"`
	Tables  []string           `query:"tables,explode" doc:"Restore only these tables"`
	RawBody []byte             `contentType:"application/octet-stream"`
}

// RestoreOutput is the Huma output for restore operations.
type RestoreOutput struct {
	Body *backup.RestoreResult
}

// === Handlers ===

func (s *Server) handleCreateBackup(ctx context.Context, input *CreateBackupInput) (*CreateBackupOutput, error) {
	result, err := s.services.Backup.Create(ctx, backup.CreateOptions{Compression: input.Body.Compression})
	if err != nil {
		return nil, err
	}
	return &CreateBackupOutput{Body: result}, nil
}

func (s *Server) handleListBackups(ctx context.Context, _ *struct{}) (*ListBackupsOutput, error) {
	backups, err := s.services.Backup.List(ctx)
	if err != nil {
		return nil, err
	}
	if backups == nil {
		backups = []backup.SnapshotInfo{}
	}
	return &ListBackupsOutput{Body: BackupsResponse{Backups: backups}}, nil
}

func (s *Server) handleListSafetyBackups(ctx context.Context, _ *struct{}) (*ListBackupsOutput, error) {
	backups, err := s.services.Backup.SafetyBackups(ctx)
	if err != nil {
		return nil, err
	}
	if backups == nil {
		backups = []backup.SnapshotInfo{}
	}
	return &ListBackupsOutput{Body: BackupsResponse{Backups: backups}}, nil
}

func (s *Server) handleGetBackup(ctx context.Context, input *BackupNameInput) (*GetBackupOutput, error) {
	info, err := s.services.Backup.Get(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	return &GetBackupOutput{Body: info}, nil
}

func (s *Server) handleDownloadBackup(ctx context.Context, input *BackupNameInput) (*huma.StreamResponse, error) {
	f, info, err := s.services.Backup.Open(ctx, input.Name)
	if err != nil {
		return nil, err
	}

	contentType := "application/json"
	switch info.Compression {
	case backup.CompressionGzip:
		contentType = "application/gzip"
	case backup.CompressionZip:
		contentType = "application/zip"
	}

	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			defer f.Close()
			ctx.SetHeader("Content-Type", contentType)
			ctx.SetHeader("Content-Disposition", "attachment; filename=\""+info.Name+"\"")
			ctx.SetHeader("Cache-Control", CacheNoStore)
			if _, err := io.Copy(ctx.BodyWriter(), f); err != nil {
				s.logger.Warn("backup download interrupted", "name", info.Name, "error", err)
			}
		},
	}, nil
}

func (s *Server) handleRestoreBackup(ctx context.Context, input *RestoreInput) (*RestoreOutput, error) {
	result, err := s.services.Backup.Restore(ctx, input.Name, backup.ImportOptions{
		Confirm: input.Body.Confirm,
		Tables:  input.Body.Tables,
	})
	if err != nil {
		return nil, err
	}
	return &RestoreOutput{Body: result}, nil
}

func (s *Server) handleImportBackup(ctx context.Context, input *ImportBackupInput) (*RestoreOutput, error) {
	opts := backup.ImportOptions{Confirm: input.Confirm, Tables: input.Tables}
	if !opts.Confirm {
		return nil, backup.ErrConfirmationRequired
	}

	snap, err := backup.Decode(bytes.NewReader(input.RawBody), input.Format)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Backup.Import(ctx, snap, opts)
	if err != nil {
		return nil, err
	}
	return &RestoreOutput{Body: result}, nil
}

func (s *Server) handleDeleteBackup(ctx context.Context, input *BackupNameInput) (*MessageOutput, error) {
	if err := s.services.Backup.Delete(ctx, input.Name); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Backup deleted"}}, nil
}
