package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/thesis"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// DashboardQuery holds the query params a dashboard accepts.
// Ownership (student, supervisor) comes from the token, never from the query.
type DashboardQuery struct {
	Statuses []string `query:"status"`
	Steps    []int    `query:"step"`
	Search   string   `query:"search"`
}

func (dq DashboardQuery) Filter() thesis.DashboardFilter {
	return thesis.DashboardFilter{Statuses: dq.Statuses, Steps: dq.Steps, Search: dq.Search}
}
