package engine

import "github.com/apicize/engine/pkg/workbook"

// Aliases for the workbook types the engine operates on most, so dispatch,
// resolve, and the OAuth2 cache read naturally without a workbook. prefix on
// every parameter.
type (
	Request       = workbook.Request
	Group         = workbook.Group
	RequestEntry  = workbook.RequestEntry
	Scenario      = workbook.Scenario
	Authorization = workbook.Authorization
	Certificate   = workbook.Certificate
	Proxy         = workbook.Proxy
	Selection     = workbook.Selection
	Workspace     = workbook.Workspace
)
