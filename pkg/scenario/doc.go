/*
Package scenario loads goal trees from YAML.

A scenario names the initial variables of an agent and the goal tree it must solve:

	name: open the door
	budget: 20
	vars:
	  attempts: 0
	goal:
	  seq:
	    - goal: door unlocked
	      budget: 5
	      solve: result == "unlocked"
	      tactic:
	        first_of:
	          - action: set
	            guard: attempts >= 2
	            args: {key: door, value: unlocked}
	          - action: incr
	            args: {key: attempts}
	    - check: door == "unlocked"

Predicates (solve, guard, while, if, check, oracle.pass) are expr expressions. They see
every variable by name, the whole map as vars, and, in solve and oracle.pass, the action
result as result. Actions are resolved by name from a registry.Registry.
*/
package scenario
