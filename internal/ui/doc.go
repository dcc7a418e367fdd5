// Package ui renders sensor-cfg output with Lipgloss.
//
// Components are plain renderers that return strings: Header for the
// command banner, Result for success and failure boxes, RenderTable for
// scan and history listings. WaitForButton and Confirm read from an
// io.Reader so commands can be tested without a terminal.
//
// Logging stays silent unless HOMESENSOR_LOG_LEVEL is set, so these
// boxes are the only output by default.
package ui
