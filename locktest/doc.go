/*
Package locktest provides helpers for testing code that builds on lockstep.

Use this package to generate keys, conditions and addresses without
repeating the same boilerplate in every test.
*/
package locktest
