// Package builtin holds plugins compiled into the binary. Importing it for
// side effects registers them with the plugin package.
package builtin
