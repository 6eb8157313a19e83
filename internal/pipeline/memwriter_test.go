package pipeline

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryWriter(t *testing.T) {
	w := &MemoryWriter{}

	data := []byte("CREATE PROCEDURE restock() BEGIN END")
	if err := w.WriteFile("out/restock.sql", data); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data[0] = 'X'

	got, ok := w.Read("out/restock.sql")
	if !ok {
		t.Fatal("Read() returned false")
	}
	if string(got) != "CREATE PROCEDURE restock() BEGIN END" {
		t.Fatalf("Read() = %q, stored content must not alias the caller's slice", got)
	}

	if err := w.WriteFile("out/restock.sql", []byte("second")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if got, _ := w.Read("out/restock.sql"); string(got) != "second" {
		t.Fatalf("Read() = %q, want overwritten content", got)
	}

	if _, ok := w.Read("out/missing.sql"); ok {
		t.Fatal("Read() found a file that was never written")
	}
}

func TestMemoryWriter_Concurrent(t *testing.T) {
	w := &MemoryWriter{}

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.WriteFile(fmt.Sprintf("p%d.sql", i), []byte("data"))
		}()
	}
	wg.Wait()

	want := []string{"p0.sql", "p1.sql", "p2.sql", "p3.sql", "p4.sql", "p5.sql", "p6.sql", "p7.sql", "p8.sql", "p9.sql"}
	if diff := cmp.Diff(want, w.Paths()); diff != "" {
		t.Fatalf("Paths() mismatch (-want +got):\n%s", diff)
	}
}
