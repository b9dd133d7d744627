package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tabula/internal/codec"
	"tabula/internal/domain"
	"tabula/internal/loader"
	"tabula/internal/repository"
	"tabula/internal/repository/sqlite"
)

// TableStore persists named tables
type TableStore interface {
	WriteTable(ctx context.Context, name string, t *codec.Table) error
	ReadTable(ctx context.Context, name string) (*codec.Table, error)
	Tables(ctx context.Context) ([]sqlite.TableInfo, error)
	DropTable(ctx context.Context, name string) error
}

// TableService provides the table operations of the CLI
type TableService struct {
	shapes   loader.Shapes
	store    TableStore
	eventBus *EventBus
	log      *slog.Logger
	opts     []repository.Option
}

// NewTableService creates a new table service.
// store may be nil when no snapshot operation is used.
func NewTableService(shapes loader.Shapes, store TableStore, eventBus *EventBus, log *slog.Logger, opts ...repository.Option) *TableService {
	return &TableService{
		shapes:   shapes,
		store:    store,
		eventBus: eventBus,
		log:      log,
		opts:     opts,
	}
}

// Validate loads path through the named shape and returns the record count
func (s *TableService) Validate(shapeName, path string) (int, error) {
	repo, err := s.load(shapeName, path)
	if err != nil {
		return 0, err
	}

	s.publish(EventTableValidated, shapeName, repo.Len(), map[string]any{"path": path})
	return repo.Len(), nil
}

// Convert validates src and writes it to dst in format.
// An empty format is inferred from the dst extension.
func (s *TableService) Convert(shapeName, src, dst, format string) (int, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(dst), ".")
	}
	c, err := codec.ForFormat(format)
	if err != nil {
		return 0, err
	}

	repo, err := s.load(shapeName, src)
	if err != nil {
		return 0, err
	}

	if c.Format() == "csv" {
		if err := repo.Export(dst); err != nil {
			return 0, err
		}
	} else if err := exportTable(repo, c, dst); err != nil {
		return 0, err
	}

	s.log.Info("table converted", "shape", shapeName, "src", src, "dst", dst, "format", c.Format())
	s.publish(EventTableConverted, shapeName, repo.Len(), map[string]any{"src": src, "dst": dst, "format": c.Format()})
	return repo.Len(), nil
}

// Snapshot validates src and stores it as table (defaults to the shape name)
func (s *TableService) Snapshot(ctx context.Context, shapeName, src, table string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("no table store configured")
	}
	if table == "" {
		table = shapeName
	}

	repo, err := s.load(shapeName, src)
	if err != nil {
		return 0, err
	}

	t, err := repo.Table()
	if err != nil {
		return 0, err
	}
	if err := s.store.WriteTable(ctx, table, t); err != nil {
		return 0, fmt.Errorf("failed to store table %s: %w", table, err)
	}

	s.log.Info("snapshot written", "shape", shapeName, "table", table, "records", repo.Len())
	s.publish(EventSnapshotWritten, shapeName, repo.Len(), map[string]any{"src": src, "table": table})
	return repo.Len(), nil
}

// Restore validates the stored table and exports it to dst as CSV
func (s *TableService) Restore(ctx context.Context, shapeName, table, dst string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("no table store configured")
	}
	if table == "" {
		table = shapeName
	}

	shape, err := s.shapes.Get(shapeName)
	if err != nil {
		return 0, err
	}

	t, err := s.store.ReadTable(ctx, table)
	if err != nil {
		return 0, err
	}

	repo, err := repository.FromTable(domain.Dynamic(shape), t, s.opts...)
	if err != nil {
		return 0, fmt.Errorf("table %s: %w", table, err)
	}
	if err := repo.Export(dst); err != nil {
		return 0, err
	}

	s.log.Info("snapshot restored", "shape", shapeName, "table", table, "dst", dst, "records", repo.Len())
	s.publish(EventSnapshotRestore, shapeName, repo.Len(), map[string]any{"table": table, "dst": dst})
	return repo.Len(), nil
}

// Tables lists stored snapshots
func (s *TableService) Tables(ctx context.Context) ([]sqlite.TableInfo, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no table store configured")
	}
	return s.store.Tables(ctx)
}

// Drop removes a stored snapshot
func (s *TableService) Drop(ctx context.Context, table string) error {
	if s.store == nil {
		return fmt.Errorf("no table store configured")
	}
	if err := s.store.DropTable(ctx, table); err != nil {
		return err
	}

	s.log.Info("snapshot dropped", "table", table)
	s.publish(EventSnapshotDropped, "", 0, map[string]any{"table": table})
	return nil
}

func (s *TableService) load(shapeName, path string) (*repository.Repository[domain.Values], error) {
	shape, err := s.shapes.Get(shapeName)
	if err != nil {
		return nil, err
	}
	return repository.Load(domain.Dynamic(shape), path, s.opts...)
}

func (s *TableService) publish(t EventType, shapeName string, records int, payload map[string]any) {
	s.eventBus.Publish(Event{Type: t, Shape: shapeName, Records: records, Payload: payload})
}

func exportTable(repo *repository.Repository[domain.Values], c codec.Exporter, dst string) error {
	t, err := repo.Table()
	if err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return &repository.IOError{Op: "create", Path: dst, Err: err}
	}

	if err := c.Export(t, f); err != nil {
		f.Close()
		return &repository.IOError{Op: "write", Path: dst, Err: err}
	}
	if err := f.Close(); err != nil {
		return &repository.IOError{Op: "close", Path: dst, Err: err}
	}

	return nil
}
