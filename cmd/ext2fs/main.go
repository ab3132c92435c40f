package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/weberc2/ext2sim/internal/ext2"
	"github.com/weberc2/ext2sim/internal/users"
)

const volumeSize = ext2.BlockSize * uint64(ext2.BlocksCount)

func main() {
	store := users.NewMemoryStore("root")

	reader := bufio.NewScanner(os.Stdin)
	shell := &shell{store: store, out: os.Stdout}

	fmt.Fprint(shell.out, "ext2fs> ")
	for reader.Scan() {
		line := strings.TrimSpace(reader.Text())
		if line != "" {
			if quit := shell.dispatch(line); quit {
				break
			}
		}
		fmt.Fprint(shell.out, "ext2fs> ")
	}
	if err := reader.Err(); err != nil {
		log.Fatalf("reading commands: %v", err)
	}
}

type shell struct {
	fs    *ext2.FileSystem
	store *users.MemoryStore
	out   *os.File
}

func (sh *shell) dispatch(line string) (quit bool) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "format":
		err = sh.cmdFormat(args)
	case "mount":
		err = sh.cmdMount(args)
	case "umount":
		err = sh.cmdUmount(args)
	case "status":
		err = sh.cmdStatus(args)
	case "login":
		err = sh.cmdLogin(args)
	case "logout":
		err = sh.cmdLogout(args)
	case "users":
		err = sh.cmdUsers(args)
	case "useradd":
		err = sh.cmdUseradd(args)
	case "mkdir":
		err = sh.cmdMkdir(args)
	case "rmdir":
		err = sh.cmdRmdir(args)
	case "dir":
		err = sh.cmdDir(args)
	case "cd":
		err = sh.cmdCd(args)
	case "create":
		err = sh.cmdCreate(args)
	case "delete":
		err = sh.cmdDelete(args)
	case "open":
		err = sh.cmdOpen(args)
	case "close":
		err = sh.cmdClose(args)
	case "read":
		err = sh.cmdRead(args)
	case "write":
		err = sh.cmdWrite(args)
	case "chmod":
		err = sh.cmdChmod(args)
	case "chown":
		err = sh.cmdChown(args)
	case "help":
		sh.cmdHelp()
	case "quit":
		return true
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
	}
	return false
}

func (sh *shell) requireMounted() error {
	if sh.fs == nil {
		return ext2.ErrNotMounted
	}
	return nil
}

func (sh *shell) cmdFormat(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: format <image>")
	}
	volume, err := ext2.CreateFileVolume(args[0], volumeSize)
	if err != nil {
		return err
	}
	fs, err := ext2.Format(volume)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Volume formatted: %s\n", args[0])
	sh.fs = fs
	return nil
}

func (sh *shell) cmdMount(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mount <image>")
	}
	volume, err := ext2.OpenFileVolume(args[0])
	if err != nil {
		return err
	}
	fs, err := ext2.Mount(volume)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Volume mounted: %s\n", args[0])
	sh.fs = fs
	return nil
}

func (sh *shell) cmdUmount(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if err := sh.fs.Unmount(); err != nil {
		return err
	}
	sh.fs = nil
	fmt.Fprintln(sh.out, "Volume unmounted")
	return nil
}

func (sh *shell) cmdStatus(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	status := sh.fs.Status()
	fmt.Fprintf(sh.out, "Blocks: %d/%d free\n", status.BlocksFree, status.BlocksTotal)
	fmt.Fprintf(sh.out, "Inodes: %d/%d free\n", status.InodesFree, status.InodesTotal)
	fmt.Fprintf(sh.out, "Open files: %d\n", status.OpenFiles)
	return nil
}

func (sh *shell) cmdLogin(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: login <user> <pass>")
	}
	record, err := sh.store.Authenticate(args[0], args[1])
	if err != nil {
		return err
	}
	sh.fs.Login(record.Username, record.UID, record.GID)
	fmt.Fprintf(sh.out, "Logged in: %s (uid=%d, gid=%d)\n", record.Username, record.UID, record.GID)
	return nil
}

func (sh *shell) cmdLogout(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	sh.fs.Logout()
	fmt.Fprintln(sh.out, "Logged out")
	return nil
}

// cmdUsers lists every known identity, sorted by username.
func (sh *shell) cmdUsers(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: users")
	}
	for _, record := range sh.store.List() {
		fmt.Fprintf(sh.out, "%-12s uid=%-5d gid=%-5d\n", record.Username, record.UID, record.GID)
	}
	return nil
}

func (sh *shell) cmdUseradd(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: useradd <user> <pass> <uid>:<gid>")
	}
	parts := strings.SplitN(args[2], ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("usage: useradd <user> <pass> <uid>:<gid>")
	}
	uid, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return fmt.Errorf("parsing uid: %w", err)
	}
	gid, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return fmt.Errorf("parsing gid: %w", err)
	}
	if err := sh.store.Add(users.Record{
		Username: args[0],
		Password: args[1],
		UID:      uint16(uid),
		GID:      uint16(gid),
	}); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "User added: %s\n", args[0])
	return nil
}

func (sh *shell) cmdMkdir(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: mkdir <path>")
	}
	if _, err := sh.fs.Mkdir(args[0], 0755); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Directory created: %s\n", args[0])
	return nil
}

func (sh *shell) cmdRmdir(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: rmdir <path>")
	}
	if err := sh.fs.Rmdir(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Directory removed: %s\n", args[0])
	return nil
}

func (sh *shell) cmdDir(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	path := "/"
	if len(args) == 1 {
		path = args[0]
	}
	ino, err := sh.fs.Resolve(path)
	if err != nil {
		return err
	}
	dir, err := sh.fs.GetInode(ino)
	if err != nil {
		return err
	}
	entries, err := sh.fs.List(&dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Fprintf(sh.out, "%-20s ino=%-4d type=%d size=%-6d uid=%-3d gid=%-3d\n",
			entry.Name, entry.Ino, entry.Type, entry.Size, entry.UID, entry.GID)
	}
	return nil
}

func (sh *shell) cmdCd(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: cd <path>")
	}
	return sh.fs.Chdir(args[0])
}

func (sh *shell) cmdCreate(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: create <path>")
	}
	ino, err := sh.fs.CreateFile(args[0], 0644)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "File created: %s (ino=%d)\n", args[0], ino)
	return nil
}

func (sh *shell) cmdDelete(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <path>")
	}
	if err := sh.fs.DeleteFile(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "File deleted: %s\n", args[0])
	return nil
}

func (sh *shell) cmdOpen(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: open <path> <flags 0=RO,1=WO,2=RW>")
	}
	flag, err := strconv.Atoi(args[1])
	if err != nil || flag < 0 || flag > 2 {
		return fmt.Errorf("invalid flags: %s", args[1])
	}
	fd, err := sh.fs.Open(args[0], ext2.OpenFlag(flag))
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "File opened: %s (fd=%d)\n", args[0], fd)
	return nil
}

func (sh *shell) cmdClose(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: close <fd>")
	}
	fd, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid fd: %s", args[0])
	}
	if err := sh.fs.Close(fd); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "File closed: fd=%d\n", fd)
	return nil
}

func (sh *shell) cmdRead(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: read <fd> <size>")
	}
	fd, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid fd: %s", args[0])
	}
	size, err := strconv.Atoi(args[1])
	if err != nil || size < 0 {
		return fmt.Errorf("invalid size: %s", args[1])
	}
	buf := make([]byte, size)
	n, err := sh.fs.ReadFD(fd, buf)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%s\n", buf[:n])
	return nil
}

func (sh *shell) cmdWrite(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: write <fd> <data>")
	}
	fd, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid fd: %s", args[0])
	}
	data := strings.Join(args[1:], " ")
	n, err := sh.fs.WriteFD(fd, []byte(data))
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Bytes written: %d\n", n)
	return nil
}

func (sh *shell) cmdChmod(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: chmod <path> <octal mode>")
	}
	perm, err := strconv.ParseUint(args[1], 8, 16)
	if err != nil {
		return fmt.Errorf("invalid mode: %s", args[1])
	}
	if err := sh.fs.Chmod(args[0], uint16(perm)); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Mode changed: %s -> %s\n", args[0], args[1])
	return nil
}

func (sh *shell) cmdChown(args []string) error {
	if err := sh.requireMounted(); err != nil {
		return err
	}
	if len(args) != 3 {
		return fmt.Errorf("usage: chown <path> <uid> <gid>")
	}
	uid, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid uid: %s", args[1])
	}
	gid, err := strconv.ParseUint(args[2], 10, 16)
	if err != nil {
		return fmt.Errorf("invalid gid: %s", args[2])
	}
	if err := sh.fs.Chown(args[0], uint16(uid), uint16(gid)); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Owner changed: %s -> uid=%d gid=%d\n", args[0], uid, gid)
	return nil
}

func (sh *shell) cmdHelp() {
	fmt.Fprintln(sh.out, "commands: format mount umount status login logout users useradd "+
		"mkdir rmdir dir cd create delete open close read write chmod chown help quit")
}
