// Package shellrun provides the two call shapes build steps use to run commands:
// ShellExec streams output to the console and RunCheckError captures it. Both fail on
// non-zero exits and write a diagnostic marker to an explicit sink before returning the error.
package shellrun
