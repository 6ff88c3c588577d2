// Package access decides which archive items a caller may see.
package access

import (
	"errors"
)

// ErrUnknownCaller is returned when a caller cannot be resolved.
var ErrUnknownCaller = errors.New("unknown caller")

// AdminScope describes where a caller has admin rights.
type AdminScope struct {
	Global     bool
	Categories map[int64]bool
}

// AdminOf reports whether the scope grants admin rights on the category.
func (s AdminScope) AdminOf(categoryID int64) bool {
	return s.Global || s.Categories[categoryID]
}

// Caller is the identity a search runs on behalf of.
type Caller struct {
	Username string
	HasPayed bool
	Scope    AdminScope
}

// Anonymous reports whether the caller carries no identity.
func (c *Caller) Anonymous() bool {
	return c == nil || c.Username == ""
}

// GlobalAdmin reports whether the caller is an admin everywhere.
func (c *Caller) GlobalAdmin() bool {
	return c != nil && c.Scope.Global
}

// Item carries the attributes of an exam that visibility rules look at.
// Pages, answers and comments are judged by the exam they belong to.
type Item struct {
	CategoryID   int64
	Public       bool
	NeedsPayment bool
}

// Visibility decides whether a caller may see an item.
type Visibility interface {
	CanView(c *Caller, it Item) bool
}

// VisibilityFunc adapts a function to Visibility.
type VisibilityFunc func(c *Caller, it Item) bool

func (f VisibilityFunc) CanView(c *Caller, it Item) bool {
	return f(c, it)
}

// Policy is the default archive rule set: category admins see everything in
// their categories, everyone else sees public exams, and exams that need
// payment only once the caller has paid.
type Policy struct{}

func (Policy) CanView(c *Caller, it Item) bool {
	if c == nil {
		return false
	}
	if c.Scope.AdminOf(it.CategoryID) {
		return true
	}
	if !it.Public {
		return false
	}
	if it.NeedsPayment && !c.HasPayed {
		return false
	}
	return true
}
