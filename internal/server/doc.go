// Package server is a local HTTP gateway to the forum, for bots and scripts
// that would rather speak JSON than scrape SMF.
//
// Every request runs as a session: the one named by the X-TBG-User header
// (restored from the session storage on first use), or the process default
// session otherwise. The header's session is entered on the request's own
// context, so concurrent requests for different users never see each
// other's session.
//
// # Endpoints
//
//	GET   /session              session the request runs as
//	POST  /session/login        {"username", "password"}; saves the session
//	GET   /topic/{tid}?page=n   one page of a topic
//	POST  /topic/{tid}/message  {"subject", "content", "icon"}
//	GET   /message/{mid}        ?source=true for BBCode via quotefast
//	PATCH /message/{mid}        {"subject", "content", "icon", "reason"}
//	GET   /user/{uid}           uid 0 is the session's own profile
//	GET   /search?q=            match, sort, order, user, board, complete, subjectOnly, page
//	GET   /alerts?page=n
//	POST  /chat                 {"text"}
//	GET   /chat/users
//	GET   /event                SSE stream; ?session= and ?type= filter
//
// Errors are JSON objects of the form
//
//	{"error": {"code": "FORUM_ERROR", "message": "...", "details": {...}}}
//
// Forum-side failures are reported as 502 with the forum's status code and,
// for rendered error pages, the SMF error id in details.
package server
