/*
Package dsl provides control-flow sugar for building goal trees.

Everything here is expressed with goal.Seq, goal.FirstOf, goal.Repeat and the Abort
action, so the resulting trees schedule exactly like hand-written ones:

	// Keep opening doors while some are closed, then walk to the exit.
	tree := goal.Seq(
		dsl.While(someDoorClosed, openNearestDoor),
		dsl.IfElse(hasKey, unlockExit, breakWindow),
	)

Every call returns fresh structures, so helpers can be reused across a tree.
*/
package dsl
