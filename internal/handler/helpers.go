// Copyright (c) 2026 Libris Authors
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/libris/libris/internal/model"
)

// parseIDParam extracts and parses the {id} URL parameter.
func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// landingPath returns the page a user of the given role lands on after login.
func landingPath(role string) string {
	switch role {
	case model.RoleFaculty:
		return RouteFaculty
	case model.RoleLibrarian:
		return RouteLibrarian
	case model.RoleAdmin:
		return RouteAdmin
	default:
		return RouteStudent
	}
}
