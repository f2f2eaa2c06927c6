package main

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgautsch/esstream"
	es "github.com/jgautsch/esstream/pkg/api/elasticsearch"
	"github.com/jgautsch/esstream/pkg/io/streams"
)

var (
	hosts    []string
	port     string
	index    string
	pagesize int
	rawquery string
	retries  uint64
)

func main() {
	root := &cobra.Command{
		Use:   "pump",
		Short: "stream documents out of an elasticsearch index as ndjson",
		RunE:  run,
	}
	root.Flags().StringSliceVar(&hosts, "hosts", []string{"127.0.0.1"}, "elasticsearch hosts")
	root.Flags().StringVar(&port, "port", "9200", "elasticsearch http port")
	root.Flags().StringVar(&index, "index", "", "index to read")
	root.Flags().IntVar(&pagesize, "pagesize", 1000, "documents fetched per page")
	root.Flags().StringVar(&rawquery, "query", "", "raw query body, defaults to match_all")
	root.Flags().Uint64Var(&retries, "retries", 0, "max retries per page fetch")
	_ = root.MarkFlagRequired("index")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log.SetOutput(os.Stderr)

	query := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []string{"_doc"},
	}
	if rawquery != "" {
		if err := json.Unmarshal([]byte(rawquery), &query); err != nil {
			return fmt.Errorf("parsing query: %w", err)
		}
	}

	loader := es.NewSearchLoader(es.Settings{
		Hosts:      hosts,
		Port:       port,
		Index:      index,
		MaxRetries: retries,
	})
	stream, err := esstream.New[esstream.Doc](query, loader, pagesize)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pipe, perrs := esstream.Pump(ctx, stream)

	stdio := &streams.StdIO{}
	for err := range stdio.Write(ctx, pipe) {
		log.WithError(err).Warn("stdout write failed")
	}
	if err := <-perrs; err != nil {
		return fmt.Errorf("pump failed: %w", err)
	}

	log.Infof("done, %d docs", stdio.Written())
	return nil
}
