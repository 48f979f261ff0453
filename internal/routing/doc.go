// Package routing decides, for every inbound gateway request, which backend
// receives it and under what path.
//
// # Overview
//
// The Router is a pure function over two inputs: the raw request path (which
// may still carry a query string) and whether the caller is authenticated. It
// performs no I/O, holds no mutable state and never fails, so a single Router
// is shared by every request goroutine.
//
// # Algorithm
//
//  1. stripQuery removes everything from the first "?". An empty path is "/".
//  2. A path under "/downloads/" goes to the Downloads backend with the rest
//     of the path forwarded verbatim.
//  3. Otherwise a leading "/dashboard" mount is removed and the remainder is
//     treated as a single-page-application route.
//  4. collapseSpaRoute maps application routes to "/" and static assets to
//     their bare file name, so "/reports/week/app.js" becomes "/app.js".
//
// The resulting Decision carries the backend name and the full backend URL.
//
// # Usage
//
//	router, err := routing.NewRouter(routing.RouteTable{
//	    Dashboard: "http://dashboard:3000",
//	    Downloads: "https://downloads.example.com",
//	})
//	if err != nil {
//	    return err
//	}
//	decision := router.Route("/dashboard/reports?week=12", false)
//	// decision.BackendPath == "http://dashboard:3000/"
//
// # Challenges and redirects
//
// Decision.ShouldChallenge and Decision.RedirectTo are part of the contract
// with the gateway but the Router currently never sets them, and the
// authenticated flag does not change any decision.
package routing
