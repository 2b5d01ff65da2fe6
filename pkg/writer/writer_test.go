package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.csv")
	w, err := New(2, path)
	if err != nil {
		t.Fatal(err)
	}
	go w.Start()

	w.Write(&Register{Ue: "ue0-0", Seq: 1, SizeBytes: 1024, SentAt: 0.0, DeliveredAt: 0.0103})
	w.Write(&Register{Ue: "ue0-0", Seq: 2, SizeBytes: 1024, SentAt: 0.1, DeliveredAt: 0.1106, Retransmitted: true})
	w.Write(&Register{Ue: "ue0-1", Seq: 3, SizeBytes: 1024, SentAt: 0.2, Lost: true})

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "ue" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "ue0-0" || rows[1][6] != "false" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][7] != "true" {
		t.Fatalf("expected retransmitted flag set: %v", rows[2])
	}
	// lost packets leave the delivery columns empty
	if rows[3][4] != "" || rows[3][6] != "true" {
		t.Fatalf("unexpected lost row: %v", rows[3])
	}
}

func TestWriterCreateError(t *testing.T) {
	if _, err := New(2, filepath.Join(t.TempDir(), "no", "such", "dir", "m.csv")); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
