// Package query filters and sorts record sets in memory.
//
// Remote listing endpoints only page; they cannot filter or order. Callers
// fetch the full set and narrow it here:
//
//	active := query.Filter(sites, []query.Condition{
//		{Field: "status", Value: "active"},
//		{Field: "name", Value: "acme", Operator: query.Contains},
//	})
//	ordered := query.Sort(active, []query.SortSpec{{Field: "name", Direction: query.Desc}})
//
// Comparisons are loose: numbers and numeric strings compare numerically,
// booleans by truthiness and everything else as strings. StartsWith is a plain
// prefix test and Contains ignores case.
package query
