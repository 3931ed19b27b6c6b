// Package http provides JSON/YAML response helpers and the read-only
// container diagnostics endpoints.
//
// # Response
//
// Response wraps http.ResponseWriter with Laravel-style helpers:
//
//	res := gohttp.NewResponse(w)
//
//	res.JSON(http.StatusOK, data)   // raw JSON with status
//	res.Success(data)               // 200 {"data": ...}
//	res.NoContent()                 // 204
//	res.YAML(http.StatusOK, state)  // application/yaml
//
//	res.Error(http.StatusBadRequest, "Bad input")
//	res.NotFound()                  // 404 "Not found."
//	res.ServerError()               // 500 "Server Error."
//
// # Request
//
//	req := gohttp.NewRequest(r)
//	req.Query("scope", "default")  // ?scope=
//	req.Has("group")               // ?group present, even empty
//	req.RouteParam("alias")        // {alias}
//	req.Format(gohttp.FormatJSON)  // ?format= or Accept, else the default
//
// # Diagnostics
//
//	GET /container/bindings
//	GET /container/explain/{abstract}
//	GET /container/dependencies/{abstract}
//	GET /container/aliases?group=
//	GET /container/aliases/{alias}?scope=
//	GET /container/tags/{tag}
//	GET /container/state                 YAML, or JSON with ?format=json
//
// With WithAdminToken, requests carrying "Authorization: Bearer <token>" may
// also switch alias profiles:
//
//	POST /container/profiles/{profile}   204, or 404 for an unknown profile
//
// Mount them on a router:
//
//	r := routing.New(logger)
//	gohttp.NewDiagnostics(c, app.Locker()).Routes(r)
//
// Lookup failures answer 404 with a "suggestion" field when a close alias or
// binding exists; alias cycles answer 409 with the visited chain. With
// WithExceptionHandler the body also carries the handler's "error" report.
package http
