// Package eval scores search results against exact ground truth.
package eval
