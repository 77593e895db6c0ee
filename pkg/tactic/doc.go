/*
Package tactic provides actions and the tactic trees that choose between them.

A Tactic is searched once per agent tick against the current state. Primitive nodes are
selectable when their guard holds; FirstOf takes the first selectable child; Seq only
considers its first child; AnyOf offers every enabled action to a Chooser.

The search itself runs on github.com/joeycumines/go-behaviortree: each tactic is compiled
to a bt.Node whose leaves succeed when their guard holds.
*/
package tactic
