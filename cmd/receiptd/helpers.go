package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/acquire"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/api"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/common"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/reconcile"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/service"
	"github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/storage"
	receiptsync "github.com/jerredrogero/PriceAdjustProiOS-sub001/internal/sync"
)

// initStore opens the receipt database and brings it to the latest schema.
func initStore(ctx context.Context) (*storage.SQLiteStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "receiptd", "receipts.db")
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not open the receipt database at %s", dbPath), err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, common.NewUserError("the receipt database schema could not be updated", err)
	}

	return store, nil
}

// initAPIClient builds the remote receipt service client from config.
func initAPIClient() (service.ReceiptAPI, error) {
	client, err := api.NewClient(api.Config{
		BaseURL: viper.GetString("api.base_url"),
		Token:   viper.GetString("api.token"),
	})
	if err != nil {
		return nil, common.NewUserError("the remote receipt service is not configured; set api.base_url and api.token", err)
	}
	return client, nil
}

// initAcquirer builds the text acquirer, with OCR fallback when a Gemini
// key is configured.
func initAcquirer(ctx context.Context) (*acquire.Acquirer, func(), error) {
	apiKey := viper.GetString("gemini.api_key")
	if apiKey == "" {
		// Machine-text documents still work; scans will fail acquisition.
		return acquire.New(nil), func() {}, nil
	}

	recognizer, err := acquire.NewGeminiRecognizer(ctx, apiKey, viper.GetString("gemini.model"))
	if err != nil {
		return nil, nil, common.NewUserError("text recognition could not be initialized; check gemini.api_key", err)
	}
	return acquire.New(recognizer), func() { _ = recognizer.Close() }, nil
}

// pipeline bundles the wired components a command needs.
type pipeline struct {
	orchestrator *receiptsync.Orchestrator
	acquirer     *acquire.Acquirer
	store        *storage.SQLiteStore
	cleanup      func()
}

// initPipeline wires the full pipeline. pipeline.cleanup closes every owned
// resource.
func initPipeline(ctx context.Context) (*pipeline, error) {
	store, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := initAPIClient()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	acquirer, closeRecognizer, err := initAcquirer(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &pipeline{
		orchestrator: receiptsync.New(acquirer, store, remote, reconcile.New(store)),
		acquirer:     acquirer,
		store:        store,
		cleanup: func() {
			closeRecognizer()
			_ = store.Close()
		},
	}, nil
}
