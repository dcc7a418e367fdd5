// Package hw wraps the physical parts of the sensor board: the DHT11
// humidity/temperature sensor, the status LED and the pairing button.
//
// On Linux boards the sensor is read through the kernel IIO driver
// (dht11 overlay), the LED through /sys/class/leds and the button is
// delivered as SIGUSR1 by a small gpiomon hook. Simulated variants exist
// for development machines and tests.
package hw
