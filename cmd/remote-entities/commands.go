package main

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-remote-entities/query"
	"github.com/spf13/cobra"
)

func newQueryCommand(a *app) *cobra.Command {
	var (
		where  []string
		sorts  []string
		start  int
		length int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter, sort and page records",
		Long: `Filter, sort and page records of the configured client.

Conditions are field=value or field:operator:value. IN, NOT_IN and BETWEEN
take comma separated values. Sorts are field[:asc|desc].

	remote-entities query --where status=active --where name:contains:acme --sort name:desc --length 10
	remote-entities query --where id:between:10,20 --where created:>=:1700000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conditions, err := parseConditions(where)
			if err != nil {
				return err
			}
			specs, err := parseSorts(sorts)
			if err != nil {
				return err
			}

			adapter, err := a.adapter()
			if err != nil {
				return err
			}
			return a.print(adapter.Query(cmd.Context(), conditions, specs, start, length))
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "condition field=value or field:operator:value, repeatable")
	cmd.Flags().StringArrayVarP(&sorts, "sort", "s", nil, "sort field[:asc|desc], repeatable")
	cmd.Flags().IntVar(&start, "start", 0, "offset of the first record")
	cmd.Flags().IntVar(&length, "length", 0, "number of records, 0 for the default page size")
	return cmd
}

func newLoadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load [id...]",
		Short: "Load records by id, or every record when no id is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := a.adapter()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				r, ok := adapter.Load(cmd.Context(), args[0])
				if !ok {
					return errors.New("record not found", errors.CategoryNotFound).
						WithMetadata(map[string]any{"id": args[0], "client": adapter.Config().Client})
				}
				return a.print(r)
			}

			var ids []string
			if len(args) > 1 {
				ids = args
			}
			return a.print(adapter.LoadMultiple(cmd.Context(), ids))
		},
	}
}

func newInvalidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Drop every cached response of the configured client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adapter, err := a.adapter()
			if err != nil {
				return err
			}
			if err := adapter.InvalidateCache(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s\n", strings.Join(adapter.Client().CacheTagsToInvalidate(), ", "))
			return nil
		},
	}
}

func newTagsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "Print the cache tags of the configured client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adapter, err := a.adapter()
			if err != nil {
				return err
			}
			client := adapter.Client()
			return a.print(map[string][]string{
				"tags":       client.CacheTags(),
				"invalidate": client.CacheTagsToInvalidate(),
			})
		},
	}
}

// parseConditions reads field=value and field:operator:value expressions.
func parseConditions(exprs []string) ([]query.Condition, error) {
	out := make([]query.Condition, 0, len(exprs))
	for _, expr := range exprs {
		c, err := parseCondition(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCondition(expr string) (query.Condition, error) {
	if field, value, ok := strings.Cut(expr, "="); ok && !strings.Contains(field, ":") {
		field = strings.TrimSpace(field)
		if field == "" {
			return query.Condition{}, badExpression("condition", expr)
		}
		return query.Condition{Field: field, Value: value, Operator: query.Equal}, nil
	}

	parts := strings.SplitN(expr, ":", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
		return query.Condition{}, badExpression("condition", expr)
	}
	field, rawOp, value := strings.TrimSpace(parts[0]), parts[1], parts[2]

	op, known := query.ParseOperator(rawOp)
	if !known {
		op, known = query.ParseOperator(strings.ReplaceAll(rawOp, "_", " "))
	}
	if !known {
		return query.Condition{}, errors.New("unknown operator", errors.CategoryBadInput).
			WithMetadata(map[string]any{"operator": rawOp, "expression": expr})
	}

	var v any = value
	switch op {
	case query.In, query.NotIn, query.Between:
		items := strings.Split(value, ",")
		list := make([]any, 0, len(items))
		for _, item := range items {
			list = append(list, strings.TrimSpace(item))
		}
		v = list
	}
	return query.Condition{Field: field, Value: v, Operator: op}, nil
}

// parseSorts reads field[:asc|desc] expressions.
func parseSorts(exprs []string) ([]query.SortSpec, error) {
	out := make([]query.SortSpec, 0, len(exprs))
	for _, expr := range exprs {
		field, dir, _ := strings.Cut(expr, ":")
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, badExpression("sort", expr)
		}

		direction := query.Asc
		switch strings.ToUpper(strings.TrimSpace(dir)) {
		case "", string(query.Asc):
		case string(query.Desc):
			direction = query.Desc
		default:
			return nil, badExpression("sort", expr)
		}
		out = append(out, query.SortSpec{Field: field, Direction: direction})
	}
	return out, nil
}

func badExpression(kind, expr string) error {
	return errors.New(fmt.Sprintf("invalid %s expression", kind), errors.CategoryBadInput).
		WithMetadata(map[string]any{"expression": expr})
}
