package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"waveprop/pkg/waveprop"
)

// rolloutInput is the JSON shape of the --in file: one initial field and
// one potential row per requested step.
type rolloutInput struct {
	InitialRe []float64   `json:"initial_re"`
	InitialIm []float64   `json:"initial_im"`
	Schedule  [][]float64 `json:"schedule"`
}

type rolloutOutput struct {
	Steps int         `json:"steps"`
	Re    [][]float64 `json:"re"`
	Im    [][]float64 `json:"im"`
}

func runRollout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rollout", flag.ContinueOnError)
	modelPath := fs.String("model", "", "model checkpoint path")
	inPath := fs.String("in", "", "rollout input JSON path")
	outPath := fs.String("out", "", "optional output JSON path (default stdout summary only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *modelPath == "" {
		return usageError("rollout requires --model")
	}
	if *inPath == "" {
		return usageError("rollout requires --in")
	}

	data, err := os.ReadFile(*inPath)
	if err != nil {
		return err
	}
	var input rolloutInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parse %s: %w", *inPath, err)
	}

	client, err := waveprop.New(waveprop.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.Rollout(ctx, waveprop.RolloutRequest{
		ModelPath: *modelPath,
		InitialRe: input.InitialRe,
		InitialIm: input.InitialIm,
		Schedule:  input.Schedule,
	})
	if err != nil {
		return err
	}

	if *outPath != "" {
		output := rolloutOutput{Steps: len(result.Re), Re: result.Re, Im: result.Im}
		encoded, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(*outPath, append(encoded, '\n'), 0o644); err != nil {
			return err
		}
	}

	fmt.Printf("rollout model=%s steps=%d grid=%d out=%s\n",
		*modelPath, len(result.Re), len(input.InitialRe), *outPath)
	return nil
}
