package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/garnizeh/careerpal/internal/config"
	"github.com/garnizeh/careerpal/internal/db"
)

// Restore must run with the server stopped; it replaces the database file.
func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	in := flag.String("in", "", "Backup file (default: <database_path>.bak)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	src := *in
	if src == "" {
		src = cfg.DatabasePath + ".bak"
	}
	dst := cfg.DatabasePath

	if err := verify(src); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %s is not a usable backup: %v\n", src, err)
		os.Exit(1)
	}

	if err := copyFile(src, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Restore error: %v\n", err)
		os.Exit(1)
	}
	// stale journal files would be replayed over the restored data
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		_ = os.Remove(dst + suffix)
	}

	fmt.Printf("Database restored from %s.\n", src)
}

func verify(path string) error {
	ctx := context.Background()
	d, err := db.New(ctx, "file:"+path+"?mode=ro")
	if err != nil {
		return err
	}
	defer d.Close()

	var res string
	if err := d.QueryRow(ctx, `PRAGMA integrity_check`).Scan(&res); err != nil {
		return err
	}
	if res != "ok" {
		return fmt.Errorf("integrity check: %s", res)
	}
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
