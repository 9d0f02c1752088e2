package logging

// DebugEnable is a string passed in by the compiler to control the build's
// inclusion of Debuggable sections.
var DebugEnable string

// Debuggable means that the build should include any debugging logic in it. The
// supervisor traces every command it runs when set.
var Debuggable = DebugEnable != ""
