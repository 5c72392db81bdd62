// Package driver загружает и выгружает модуль ядра interrupt-timer и создаёт его символьное устройство.
package driver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/config"
	"github.com/TahomaSoft/Raspberry-Pi-PPS-Client/internal/logger"
)

const (
	// DefaultName — имя модуля и устройства в /proc/devices.
	DefaultName = "interrupt-timer"
	// DefaultDeviceNode — узел устройства, который читает источник chardev.
	DefaultDeviceNode = "/dev/interrupt-timer"
	// DefaultMode — права узла (chmod 664).
	DefaultMode = 0o664
	// ProcDevices — список зарегистрированных major-номеров.
	ProcDevices = "/proc/devices"
)

var (
	// ErrNoMajor — модуль не зарегистрировал символьное устройство: insmod не сработал.
	ErrNoMajor = errors.New("no major found")
	// ErrUnsupported — загрузка модулей недоступна на этой платформе.
	ErrUnsupported = errors.New("kernel modules not supported on this platform")
)

// kernel — системные вызовы, которые нужны Manager. На Linux — x/sys/unix.
type kernel interface {
	InitModule(path, params string) error
	DeleteModule(name string) error
	Mknod(path string, mode uint32, major, minor uint32) error
	Release() (string, error)
}

// Manager управляет модулем ядра и узлом /dev.
type Manager struct {
	Name        string // имя модуля
	ModulePath  string // пусто = /lib/modules/<release>/kernel/drivers/misc/<Name>.ko
	DeviceNode  string
	Mode        os.FileMode
	Group       int // gid владельца узла (chgrp root)
	ProcDevices string

	k kernel
}

// New создаёт Manager с системными вызовами платформы.
func New(c config.DriverConfig) *Manager {
	return newManager(c, sysKernel{})
}

func newManager(c config.DriverConfig, k kernel) *Manager {
	m := &Manager{
		Name:        c.Name,
		ModulePath:  c.ModulePath,
		DeviceNode:  c.DeviceNode,
		Mode:        os.FileMode(c.Mode),
		ProcDevices: ProcDevices,
		k:           k,
	}
	if m.Name == "" {
		m.Name = DefaultName
	}
	if m.DeviceNode == "" {
		m.DeviceNode = DefaultDeviceNode
	}
	if m.Mode == 0 {
		m.Mode = DefaultMode
	}
	return m
}

// Load вставляет модуль с параметром gpio_num и создаёт узел устройства.
// Если major не найден, модуль выгружается обратно.
func (m *Manager) Load(gpio int) error {
	if gpio < 0 {
		return fmt.Errorf("invalid gpio number: %d", gpio)
	}
	if err := removeNode(m.DeviceNode); err != nil {
		return err
	}
	path, err := m.modulePath()
	if err != nil {
		return err
	}
	params := fmt.Sprintf("gpio_num=%d", gpio)
	if err := m.k.InitModule(path, params); err != nil {
		return fmt.Errorf("insmod %s %s: %w", path, params, err)
	}
	logger.Info("module %s inserted (%s)", m.Name, params)

	major, err := m.findMajor()
	if err != nil {
		if rerr := m.k.DeleteModule(m.Name); rerr != nil {
			logger.Error("rmmod %s: %v", m.Name, rerr)
		}
		return err
	}
	if err := m.k.Mknod(m.DeviceNode, uint32(m.Mode.Perm()), uint32(major), 0); err != nil {
		return fmt.Errorf("mknod %s c %d 0: %w", m.DeviceNode, major, err)
	}
	if err := os.Chown(m.DeviceNode, -1, m.Group); err != nil {
		return fmt.Errorf("chgrp %s: %w", m.DeviceNode, err)
	}
	if err := os.Chmod(m.DeviceNode, m.Mode.Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", m.DeviceNode, err)
	}
	logger.Info("device %s created (major %d)", m.DeviceNode, major)
	return nil
}

// Unload выгружает модуль и удаляет узел устройства.
func (m *Manager) Unload() error {
	if err := m.k.DeleteModule(m.Name); err != nil {
		return fmt.Errorf("rmmod %s: %w", m.Name, err)
	}
	return removeNode(m.DeviceNode)
}

func (m *Manager) modulePath() (string, error) {
	if m.ModulePath != "" {
		return m.ModulePath, nil
	}
	rel, err := m.k.Release()
	if err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	return filepath.Join("/lib/modules", rel, "kernel/drivers/misc", m.Name+".ko"), nil
}

func (m *Manager) findMajor() (int, error) {
	f, err := os.Open(m.ProcDevices)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", m.ProcDevices, err)
	}
	defer f.Close()
	return ParseMajor(f, m.Name)
}

func removeNode(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// ParseMajor ищет major-номер символьного устройства name в формате /proc/devices.
// Секция блочных устройств не просматривается.
func ParseMajor(r io.Reader, name string) (int, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "Block devices") {
			break
		}
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[1] != name {
			continue
		}
		major, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		return major, nil
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("%s: %w", name, ErrNoMajor)
}
