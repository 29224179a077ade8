package projections

import (
	"context"
	"time"

	"makerspace/internal/adapters/storage/account"
	"makerspace/internal/application/listutil"
	domainAccount "makerspace/internal/domain/account"
)

// UserListSortColumns are the sortable columns of the user list.
var UserListSortColumns = []string{"name", "email", "created", "type"}

// UserListFilterKeys are the exact-match filters of the user list.
var UserListFilterKeys = []string{"userType"}

// UserSummary is the listing view of an account. It never carries the password hash.
type UserSummary struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	UserType     string                `json:"userType"`
	IsInstructor bool                  `json:"isInstructor"`
	Profile      domainAccount.Profile `json:"profile"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// Summarize converts an account to its public view.
func Summarize(a domainAccount.Account) UserSummary {
	return UserSummary{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		UserType:     a.UserType,
		IsInstructor: a.IsInstructor,
		Profile:      a.Profile,
		CreatedAt:    a.CreatedAt,
	}
}

// UserListResult is one page of users.
type UserListResult struct {
	Users []UserSummary     `json:"users"`
	Page  listutil.PageInfo `json:"page"`
}

// QueryUserList pages through accounts with search, type filter, and sort.
// PRE: params come from listutil.ParseListParams with UserListSortColumns and UserListFilterKeys
// POST: Page.Total counts all matches, Users holds at most Page.PerPage rows
func QueryUserList(ctx context.Context, params listutil.ListParams, store AccountStore) (UserListResult, error) {
	filter := account.ListFilter{
		Search:   params.Search,
		UserType: params.Filters["userType"],
		Sort:     params.SortKey(),
	}
	total, err := store.Count(ctx, filter)
	if err != nil {
		return UserListResult{}, err
	}
	page := listutil.NewPageInfo(params.Page, params.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = page.Offset()

	accounts, err := store.List(ctx, filter)
	if err != nil {
		return UserListResult{}, err
	}
	out := UserListResult{Users: make([]UserSummary, 0, len(accounts)), Page: page}
	for _, a := range accounts {
		out.Users = append(out.Users, Summarize(a))
	}
	return out, nil
}

// QueryInstructors lists accounts that can be assigned to classes.
func QueryInstructors(ctx context.Context, store AccountStore) ([]UserSummary, error) {
	accounts, err := store.List(ctx, account.ListFilter{InstructorOnly: true, Sort: "name", Limit: 500})
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, Summarize(a))
	}
	return out, nil
}
