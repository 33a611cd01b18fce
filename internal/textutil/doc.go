// Package textutil turns user-supplied names into filesystem-safe tokens.
package textutil
