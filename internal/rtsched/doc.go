// Package rtsched поднимает приоритет процесса до реального времени и проверяет права.
package rtsched
