package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/snackx/internal/services"
	"github.com/desertthunder/snackx/internal/shared"
)

// APIGet makes a direct GET request to the backend, signed when a session is stored.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path, nil, services.AuthOptional)
	if err != nil {
		return err
	}
	return r.writeBody(resp.Body, cmd.Bool("pretty"))
}

// APIPost makes a direct POST request to the backend
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Info("POST request", "path", path)

	var body json.RawMessage
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	resp, err := r.api.Post(ctx, path, body, services.AuthOptional)
	if err != nil {
		return err
	}
	return r.writeBody(resp.Body, true)
}

// writeBody prints a JSON body re-indented, or raw bytes when it is not JSON.
func (r *Runner) writeBody(body []byte, pretty bool) error {
	var v any
	if len(body) > 0 && json.Unmarshal(body, &v) == nil {
		return r.writeJSON(v, pretty)
	}
	if _, err := r.output.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
