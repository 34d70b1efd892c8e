// Package form implements a reactive form model: fields, groups and arrays
// arranged in a tree, with synchronous and asynchronous validators, status
// aggregation and value-change streams.
//
// A Group's or Array's value and status are always derived from its current
// children; disabled children are left out of both. Every control exposes
// ValueChanges and StatusChanges as rx.Observable values, which is how
// conditional validation is wired (see When).
//
// A form tree is owned by one logical caller. Mutations take a tree-wide
// lock and notifications are delivered after it is released, so observers may
// mutate the tree from inside a callback.
package form
