package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"
	"fitsearch/internal/repository"
	"fitsearch/internal/service"
)

func loadGazetteer(path string) (*geo.Gazetteer, error) {
	if path != "" {
		return geo.LoadFile(path)
	}
	return geo.Default()
}

func newSearchService(gazetteerPath, cataloguePath string) (*service.SearchService, *service.QueryEngine, error) {
	gazetteer, err := loadGazetteer(gazetteerPath)
	if err != nil {
		return nil, nil, err
	}
	engine := service.NewQueryEngine(gazetteer, service.NewSessionStore(service.SessionConfig{}), service.EngineConfig{})
	if cataloguePath == "" {
		return nil, engine, nil
	}
	repo, err := repository.LoadMemoryRepository(cataloguePath)
	if err != nil {
		return nil, nil, err
	}
	search := service.NewSearchService(engine, repo, service.NewRanker(0.4, 0.35, 0.25), nil, service.SearchConfig{})
	return search, engine, nil
}

func runResolve(in io.Reader, out io.Writer, gazetteerPath, sessionID, cataloguePath string) error {
	search, engine, err := newSearchService(gazetteerPath, cataloguePath)
	if err != nil {
		return err
	}
	if sessionID == "" {
		sessionID = service.NewSessionID()
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fmt.Fprintf(out, "> %s\n", line)

		if search == nil {
			res, err := engine.Resolve(sessionID, line)
			if err != nil {
				if err := printClarification(out, err); err != nil {
					return err
				}
				continue
			}
			if err := printJSON(out, res); err != nil {
				return err
			}
			continue
		}

		resp, err := search.Search(context.Background(), &model.SearchRequest{SessionID: sessionID, Query: line})
		if err != nil {
			if err := printClarification(out, err); err != nil {
				return err
			}
			continue
		}
		printSummary(out, resp)
	}
	return scanner.Err()
}

func runSearch(out io.Writer, gazetteerPath, cataloguePath, query string, topK int) error {
	search, _, err := newSearchService(gazetteerPath, cataloguePath)
	if err != nil {
		return err
	}
	if search == nil {
		return errors.New("--catalogue is required")
	}
	resp, err := search.Search(context.Background(), &model.SearchRequest{
		Query:   query,
		Options: &model.SearchOptions{TopK: topK},
	})
	if err != nil {
		return printClarification(out, err)
	}
	printSummary(out, resp)
	return nil
}

func runLocate(out io.Writer, gazetteerPath string, args []string) error {
	gazetteer, err := loadGazetteer(gazetteerPath)
	if err != nil {
		return err
	}
	rec, err := gazetteer.ResolveLocation(strings.Join(args, " "))
	if err != nil {
		return printClarification(out, err)
	}
	if region, ok := gazetteer.Region(strings.Join(args, " ")); ok {
		fmt.Fprintf(out, "region %s: postcode areas %s\n", region.Name, strings.Join(region.Areas, ", "))
	}
	return printJSON(out, rec)
}

func runWindow(out io.Writer, arg string) error {
	years, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return fmt.Errorf("invalid years remaining %q: %w", arg, err)
	}
	fmt.Fprintln(out, model.RepoweringWindowFor(years))
	return nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func printClarification(out io.Writer, err error) error {
	clarification, ok := service.Clarify(err)
	if !ok {
		return err
	}
	return printJSON(out, clarification)
}

func printSummary(out io.Writer, resp *model.SearchResponse) {
	res := resp.Resolution
	fmt.Fprintf(out, "intent=%s mode=%s", res.Intent.Kind, res.ExecutionMode.Kind)
	if res.Intent.Action != "" {
		fmt.Fprintf(out, " action=%s", res.Intent.Action)
	}
	fmt.Fprintln(out)
	_ = printJSON(out, res.Filter)

	if agg := resp.Aggregate; agg != nil {
		fmt.Fprintf(out, "%s: count=%d total=%.1f kW average=%.1f kW\n", agg.Metric, agg.Count, agg.TotalCapacityKW, agg.AverageCapacityKW)
		for _, t := range model.AllTechnologies {
			if g, ok := agg.ByTechnology[t]; ok {
				fmt.Fprintf(out, "  %-20s count=%d total=%.1f kW\n", t.Label(), g.Count, g.TotalCapacityKW)
			}
		}
		return
	}

	if resp.Relaxed {
		fmt.Fprintln(out, "no exact capacity match, showing closest")
	}
	fmt.Fprintf(out, "%d of %d installations\n", len(resp.Results), resp.Total)
	for _, r := range resp.Results {
		line := fmt.Sprintf("  %s  %-14s %8.1f kW  %-9s %5.1f yrs (%s)", r.InstallationID, r.Technology, r.CapacityKW, r.Postcode, r.YearsRemaining, r.Window)
		if r.DistanceKM != nil {
			line += fmt.Sprintf("  %.1f km", *r.DistanceKM)
		}
		fmt.Fprintln(out, line)
	}
}
