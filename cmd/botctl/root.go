package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"carevo-bot/internal/catalog"
	"carevo-bot/internal/repository"
	"carevo-bot/internal/session"
)

type options struct {
	backend  string
	sessions string
	messages string
	table    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "botctl",
		Short:         "Inspect and maintain carevo bot records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.backend, "backend", repository.BackendFile, "record backend: file or dynamodb")
	root.PersistentFlags().StringVar(&opts.sessions, "sessions", "./sessions.json", "sessions file (file backend)")
	root.PersistentFlags().StringVar(&opts.messages, "messages", "./messages.json", "message catalog file (file backend)")
	root.PersistentFlags().StringVar(&opts.table, "table", "", "DynamoDB table (dynamodb backend)")

	root.AddCommand(sessionsCmd(opts))
	root.AddCommand(catalogCmd(opts))
	return root
}

func (o *options) record(ctx context.Context, loc repository.Location) (repository.Record, error) {
	var api *dynamodb.Client
	if o.backend == repository.BackendDynamoDB {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		api = dynamodb.NewFromConfig(cfg)
	}
	return repository.Open(o.backend, loc, api, o.table)
}

func (o *options) sessionStore(ctx context.Context) (*session.Store, error) {
	rec, err := o.record(ctx, repository.Location{Path: o.sessions, Name: "sessions"})
	if err != nil {
		return nil, err
	}
	store, err := session.New(rec)
	if err != nil {
		return nil, err
	}
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	return store, nil
}

func (o *options) catalogRecord(ctx context.Context) (repository.Record, error) {
	return o.record(ctx, repository.Location{Path: o.messages, Name: "messages"})
}

func (o *options) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	rec, err := o.catalogRecord(ctx)
	if err != nil {
		return nil, err
	}
	c, err := catalog.New(rec)
	if err != nil {
		return nil, err
	}
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
