package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/gopimeda/elearning/client"
	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/listview"
)

var listResources = []string{"users", "courses", "quizzes", "enrollments", "reviews"}

// filterFlags collects repeated -filter FIELD=VALUE flags.
type filterFlags map[string]string

func (f filterFlags) String() string {
	parts := make([]string, 0, len(f))
	for field, value := range f {
		parts = append(parts, field+"="+value)
	}
	return strings.Join(parts, ",")
}

func (f filterFlags) Set(arg string) error {
	field, value, ok := strings.Cut(arg, "=")
	if !ok || field == "" {
		return errors.Errorf("filter must be of form FIELD=VALUE (got %q)", arg)
	}
	f[field] = value
	return nil
}

// runListCmd drives a listview.Controller over the HTTP API: the same
// filter/sort/page state and export contract the web views use.
func (cli *commandLine) runListCmd(args []string, export bool) error {
	name := "list"
	if export {
		name = "export"
	}
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	resource := cmd.String("resource", "", "Collection to target: "+strings.Join(listResources, ", ")+".")
	baseURL := cmd.String("url", "http://localhost:8000/v1", "API base URL.")
	token := cmd.String("token", "", "Bearer token of a staff account.")
	search := cmd.String("search", "", "Search term.")
	sortBy := cmd.String("sort", "", "Sort field.")
	desc := cmd.Bool("desc", false, "Sort descending.")
	page := cmd.Int("page", 1, "Page number.")
	limit := cmd.Int("limit", listing.DefaultPageSize, "Page size.")
	filters := make(filterFlags)
	cmd.Var(filters, "filter", "Category filter as FIELD=VALUE; repeatable.")
	if err := cmd.Parse(args); err != nil {
		return err
	}
	if *resource == "" || *token == "" {
		cmd.Usage()
		return errHelp
	}
	if !isListResource(*resource) {
		return errors.Errorf("unknown resource %q", *resource)
	}

	c := client.New(client.Options{BaseURL: *baseURL, Auth: client.StaticToken(*token)})
	res := client.NewResource[map[string]interface{}](c, *resource, *resource)
	ctrl := listview.New(listview.Options[map[string]interface{}]{
		Fetcher:  res,
		Mutator:  res,
		Exporter: res,
	})
	defer ctrl.Close()

	// setters reset paging, so the page comes last
	if *search != "" {
		ctrl.SetSearch(*search)
	}
	for field, value := range filters {
		ctrl.SetFilter(field, value)
	}
	if *sortBy != "" {
		ctrl.SetSort(*sortBy, !*desc)
	}
	ctrl.SetPageSize(*limit)
	ctrl.SetPage(*page)

	ctx := context.Background()
	if export {
		filename, data, err := ctrl.Export(ctx)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filename, data, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", filename)
		}
		fmt.Fprintf(cli.out, "wrote %s (%d bytes)\n", filename, len(data))
		return nil
	}

	if err := ctrl.FetchPage(ctx); err != nil {
		return err
	}
	for _, item := range ctrl.Items() {
		line, err := json.Marshal(item)
		if err != nil {
			return errors.Wrap(err, "encoding row")
		}
		fmt.Fprintln(cli.out, string(line))
	}
	pg := ctrl.Page()
	fmt.Fprintf(cli.out, "page %d/%d (%d items)\n", pg.CurrentPage, pg.TotalPages, pg.TotalCount)
	return nil
}

func isListResource(name string) bool {
	for _, r := range listResources {
		if r == name {
			return true
		}
	}
	return false
}
