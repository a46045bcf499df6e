// Command edgectl is the operator CLI for the edge: it explains how a host
// would be resolved and publishes binding-cache invalidations.
package main

func main() { Execute() }
