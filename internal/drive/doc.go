// Package drive describes the optical drives discprobe watches: their
// INQUIRY identity, the tray status reported by the kernel and the medium
// last probed in them.
package drive
