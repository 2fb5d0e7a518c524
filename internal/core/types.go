package core

import "gridcore/pkg/domain"

type (
	EntityType          = domain.EntityType
	ColumnType          = domain.ColumnType
	Base                = domain.Base
	Table               = domain.Table
	Column              = domain.Column
	Row                 = domain.Row
	Cell                = domain.Cell
	CellKey             = domain.CellKey
	View                = domain.View
	ViewConfig          = domain.ViewConfig
	SortKey             = domain.SortKey
	ColumnFilter        = domain.ColumnFilter
	ColumnPinning       = domain.ColumnPinning
	Change              = domain.Change
	Action              = domain.Action
	Violation           = domain.Violation
	Result              = domain.Result
	Severity            = domain.Severity
	Limits              = domain.Limits
	RulesEngine         = domain.RulesEngine
	Rule                = domain.Rule
	Transaction         = domain.Transaction
	TransactionView     = domain.TransactionView
	PersistentStore     = domain.PersistentStore
	RuleViolationError  = domain.RuleViolationError
	LimitError          = domain.LimitError
	NotFoundError       = domain.NotFoundError
	ValidationError     = domain.ValidationError
	QueueSaturatedError = domain.QueueSaturatedError
)

const (
	EntityBase   = domain.EntityBase
	EntityTable  = domain.EntityTable
	EntityColumn = domain.EntityColumn
	EntityRow    = domain.EntityRow
	EntityCell   = domain.EntityCell
	EntityView   = domain.EntityView
)

const (
	ColumnText   = domain.ColumnText
	ColumnNumber = domain.ColumnNumber
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
