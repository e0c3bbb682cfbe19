package persist

import (
	"bytes"
	"testing"
	"time"

	"github.com/l1jgo/scenegraph/internal/config"
)

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("scene: a\n"))
	if len(a) != 32 {
		t.Fatalf("len = %d, want 32", len(a))
	}
	if !bytes.Equal(a, Checksum([]byte("scene: a\n"))) {
		t.Error("checksum not deterministic")
	}
	if bytes.Equal(a, Checksum([]byte("scene: b\n"))) {
		t.Error("different bodies share a checksum")
	}
}

func TestSnapshotRowUnchanged(t *testing.T) {
	body := []byte("entities: []\n")
	row := &SnapshotRow{Checksum: Checksum(body)}
	if !row.Unchanged(body) {
		t.Error("same body reported changed")
	}
	if row.Unchanged(append(body, '#')) {
		t.Error("edited body reported unchanged")
	}
}

func TestPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		DSN:             "postgres://u:p@db.local:5432/scenes?sslmode=disable",
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
	pc, err := poolConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if pc.MaxConns != 8 || pc.MinConns != 2 || pc.MaxConnLifetime != time.Hour {
		t.Errorf("pool = max %d min %d life %s", pc.MaxConns, pc.MinConns, pc.MaxConnLifetime)
	}
	if pc.ConnConfig.Host != "db.local" || pc.ConnConfig.Database != "scenes" {
		t.Errorf("conn = %s/%s", pc.ConnConfig.Host, pc.ConnConfig.Database)
	}

	cfg.MaxIdleConns = 20 // above max: left at the pgx default
	if pc, err = poolConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if pc.MinConns > pc.MaxConns {
		t.Errorf("MinConns %d > MaxConns %d", pc.MinConns, pc.MaxConns)
	}

	if _, err := poolConfig(config.DatabaseConfig{DSN: "postgres://%zz"}); err == nil {
		t.Error("expected dsn parse error")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("no migrations embedded")
	}
	src, err := migrations.ReadFile("migrations/" + entries[0].Name())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range [][]byte{[]byte("-- +goose Up"), []byte("-- +goose Down"), []byte("scene_snapshots")} {
		if !bytes.Contains(src, want) {
			t.Errorf("%s missing %q", entries[0].Name(), want)
		}
	}
}
