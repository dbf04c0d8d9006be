package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"waveprop/pkg/waveprop"
)

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", "", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := waveprop.New(waveprop.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	items, err := client.Runs(ctx, waveprop.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	if *jsonOut {
		type runsItem struct {
			RunID        string  `json:"run_id"`
			Name         string  `json:"name"`
			CreatedAtUTC string  `json:"created_at_utc"`
			DatasetPath  string  `json:"dataset_path"`
			Epochs       int     `json:"epochs"`
			Seed         int64   `json:"seed"`
			FinalLoss    float64 `json:"final_loss"`
		}
		out := make([]runsItem, 0, len(items))
		for _, item := range items {
			out = append(out, runsItem{
				RunID:        item.RunID,
				Name:         item.Name,
				CreatedAtUTC: item.CreatedAtUTC,
				DatasetPath:  item.DatasetPath,
				Epochs:       item.Epochs,
				Seed:         item.Seed,
				FinalLoss:    item.FinalLoss,
			})
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	for _, item := range items {
		fmt.Printf("run=%s name=%s created=%s dataset=%s epochs=%d seed=%d final_loss=%.6f\n",
			item.RunID, item.Name, item.CreatedAtUTC, item.DatasetPath,
			item.Epochs, item.Seed, item.FinalLoss)
	}
	return nil
}
