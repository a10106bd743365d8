// Package hashroute maps URL fragments to views and consumers.
//
// A Router keeps a table of named routes. Each route may hold one view (a
// list of nodes rendered into host elements) and any number of consumers
// notified when the route becomes active or inactive. Exactly one route is
// active at a time; activating another runs, in order, the new route's
// consumers, every unnamed host binding, and then the previous route's
// consumers with active=false.
//
// Route names always carry a leading '#'. "about" and "#about" are the same
// route, and the empty name is the root route "#".
//
// Routers are single-threaded. All calls must happen on the goroutine that
// owns the Location and Scheduler, which for a live session is its event
// loop.
//
// Install wires a Router to a dom.Document and registers the declarative
// directives:
//
//	<template route="about">...</template>   view for #about
//	<section route="about"></section>        shows #about while active
//	<main route-active></main>               shows whichever route is active
//	<a route-link="about">about</a>          activates #about on click
package hashroute
