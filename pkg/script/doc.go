// Package script runs Starlark scenarios against a keeper.Keeper.
//
// A scenario is a .star file that drives the intake workflow with these
// builtins:
//
//	intake(name, species, sex, size, weight, age, food) -> primate
//	medicate(name) -> primate
//	move(name) -> primate            # release from isolation, transfer to enclosure
//	release(name) -> primate         # release from enclosure
//	isolated() -> [str]              # details line per isolated primate
//	enclosures() -> [str]            # one summary per species
//	roster() -> [str]                # header plus sorted lines
//	find(name) -> primate | None
//	stage(name) -> str
//	attempt(fn, *args, **kwargs) -> None | error class
//
// Species, sex and food are matched case-insensitively. A failing builtin
// aborts the scenario unless it is wrapped in attempt:
//
//	intake("Koko", "mangabey", "female", 10, 20, 5, "fruits")
//	if attempt(move, "Koko") != "precondition":
//	    fail("Koko must be medicated first")
//	medicate("Koko")
//	move("Koko")
//	print(enclosures()[3])
//
// Runs are bounded by a timeout and optionally by a step budget.
package script
