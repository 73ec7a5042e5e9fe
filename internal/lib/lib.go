// Packages lib acts as a library for modules that do not fit
// strictly into other layers.
//
// It contains the IBAN checksum and formatting rules (lib/iban) and
// shared utilities (lib/utils).
package lib
