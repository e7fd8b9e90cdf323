// Package devices discovers removable block devices suitable as OPL
// targets. Listing shells out to lsblk; hot-plug awareness comes from udev
// netlink events so the UI can refresh its device picker without polling.
package devices
