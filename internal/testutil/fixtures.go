// Package testutil provides shared fixtures for parser and transformer
// tests: realistic IOS-XR command output and helpers for building fake
// execution trees.
package testutil

// CPUOutput is representative "show process cpu" output.
const CPUOutput = `
CPU utilization for five seconds: 8%/0%; one minute: 12%; five minutes: 7%
 PID Runtime(ms)     Invoked      uSecs   5Sec   1Min   5Min TTY Process
  88     1234567     1234567       1000  0.00%  0.00%  0.00%   0 Check heaps
`

// MemoryOutput is representative "show process memory" output.
const MemoryOutput = `
Processor Pool Total: 1000000000 Used: 200000000 Free: 800000000
`

// OSPFDatabaseOutput is a summary "show ospf database" with the router id
// header and two Router LSA rows.
const OSPFDatabaseOutput = `
            OSPF Router with ID (172.16.1.1) (Process ID 1)

                Router Link States (Area 0)

Link ID         ADV Router      Age         Seq#       Checksum Link count
172.16.1.1      172.16.1.1      100         0x80000004 0x00387a 2
172.16.2.2      172.16.2.2      241         0x80000003 0x004c21 3
`

// OSPFDatabaseRouterOutput carries Transit Network blocks with TOS 0
// metrics for router 172.16.1.1 and a block from another router that must
// be ignored when scoping to 172.16.1.1.
const OSPFDatabaseRouterOutput = `
            OSPF Router with ID (172.16.1.1) (Process ID 1)

                Router Link States (Area 0)

  LS age: 233
  Options: (No TOS-capability, DC)
  LS Type: Router Links
  Link State ID: 172.16.1.1
  Advertising Router: 172.16.1.1
  LS Seq Number: 80000004
  Checksum: 0x387a
  Length: 48
   Number of Links: 2

    Link connected to: a Transit Network
     (Link ID) Designated Router address: 172.13.0.10
     (Link Data) Router Interface address: 172.13.0.9
      Number of TOS metrics: 0
       TOS 0 Metrics: 100

    Link connected to: a Stub Network
     (Link ID) Network/subnet number: 172.16.1.1
     (Link Data) Network Mask: 255.255.255.255
      Number of TOS metrics: 0
       TOS 0 Metrics: 1

  LS age: 120
  Link State ID: 172.16.2.2
  Advertising Router: 172.16.2.2

    Link connected to: a Transit Network
     (Link ID) Designated Router address: 172.13.0.20
     (Link Data) Router Interface address: 172.13.0.19
      Number of TOS metrics: 0
       TOS 0 Metrics: 450
`

// OSPFDatabaseNetworkOutput maps two DR addresses to attached routers.
const OSPFDatabaseNetworkOutput = `
            OSPF Router with ID (172.16.1.1) (Process ID 1)

                Net Link States (Area 0)

  LS age: 217
  Options: (No TOS-capability, DC)
  LS Type: Network Links
  Link State ID: 172.13.0.10 (address of Designated Router)
  Advertising Router: 172.16.2.2
  LS Seq Number: 80000001
  Checksum: 0x9a1b
  Length: 32
  Network Mask: /30
        Attached Router: 172.16.2.2
        Attached Router: 172.16.1.1

  Link State ID: 172.13.0.20 (address of Designated Router)
  Advertising Router: 172.16.3.3
        Attached Router: 172.16.3.3
        Attached Router: 172.16.2.2
`

// OSPFInterfaceBriefOutput has loopback and transit interfaces with costs.
const OSPFInterfaceBriefOutput = `
* Indicates MADJ interface

Interfaces for OSPF 1

Interface          PID   Area            IP Address/Mask    Cost  State Nbrs F/C
Lo0                1     0               172.16.1.1/32      1     LOOP  0/0
Gi0/0/0/1          1     0               172.13.0.9/30      600   DR    1/1
Gi0/0/0/2          1     0               172.13.0.13/30     7500  BDR   1/1
`

// OSPFNeighborOutput has two FULL adjacencies and one management-side
// neighbor that must be filtered out.
const OSPFNeighborOutput = `
            OSPF Router with ID (172.16.1.1) (Process ID 1)

Neighbors for OSPF 1

Neighbor ID     Pri   State           Dead Time   Address         Interface
172.16.2.2      1     FULL/DR         00:00:35    172.13.0.10     GigabitEthernet0/0/0/1
172.16.3.3      1     FULL/BDR        00:00:38    172.13.0.14     GigabitEthernet0/0/0/2
172.16.9.9      1     EXCHANGE/DR     00:00:31    172.13.0.18     GigabitEthernet0/0/0/3
172.16.8.8      1     FULL/DR         00:00:33    10.255.1.8      MgmtEth0/RP0/CPU0/0

Total neighbor count: 4
`

// OSPFRunningConfigOutput carries area-scoped configured costs.
const OSPFRunningConfigOutput = `
router ospf 1
 router-id 172.16.1.1
 area 0
  interface Loopback0
  !
  interface GigabitEthernet0/0/0/1
   cost 200
  !
  interface GigabitEthernet0/0/0/2.300
   cost 1000
  !
 !
!
`

// CDPBriefOutput is tabular CDP output including a wrapped row whose
// continuation line must be skipped.
const CDPBriefOutput = `
Capability Codes: R - Router, T - Trans Bridge, B - Source Route Bridge
                  S - Switch, H - Host, I - IGMP, r - Repeater

Device ID        Local Intrfce         Holdtme Capability  Platform  Port ID
deu-r6.cisco.lo  Gi0/0/0/4             164     R           IOS-XRv 9 Gi0/0/0/4
usa-r2           Gi0/0/0/1             179     R           ASR9K     Gi0/0/0/1
very-long-hostname-that-wraps.example.com
                 Gi0/0/0/7             151     R           ASR9K     Gi0/0/0/2
`

// CDPDetailOutput is block-format CDP detail output for two neighbors.
const CDPDetailOutput = `
-------------------------
Device ID: usa-r2
SysName : usa-r2

Entry address(es):
  IP address: 172.13.0.10
Platform: cisco IOS-XRv 9000,  Capabilities: Router
Interface: GigabitEthernet0/0/0/1
Port ID (outgoing port): GigabitEthernet0/0/0/1
Holdtime : 144 sec

-------------------------
Device ID: fra-r3
Entry address(es):
  IP address: 172.13.0.14
Platform: cisco ASR9K Series,  Capabilities: Router
Interface: GigabitEthernet0/0/0/2
Port ID (outgoing port): TenGigE0/0/0/5
Holdtime : 166 sec
`

// InterfaceBriefOutput is "show interface brief" rows.
const InterfaceBriefOutput = `
               Intf       Intf        LineP              Encap  MTU        BW
               Name       State       State               Type (byte)    (Kbps)
          Gi0/0/0/1          up          up               ARPA  1514   1000000
          Te0/0/0/5          up          up               ARPA  1514  10000000
              BE200          up          up               ARPA  1514   2000000
                Lo0          up          up           Loopback  1500         0
`

// InterfaceDetailOutput is full "show interface" output for two interfaces.
const InterfaceDetailOutput = `
GigabitEthernet0/0/0/1 is up, line protocol is up
  Interface state transitions: 1
  Hardware is GigabitEthernet, address is 5254.0012.3456 (bia 5254.0012.3456)
  Description: link to usa-r2
  Internet address is 172.13.0.9/30
  MTU 1514 bytes, BW 1000000 Kbit (Max: 1000000 Kbit)
     reliability 255/255, txload 0/255, rxload 0/255
  5 minute input rate 250000 bits/sec, 40 packets/sec
  5 minute output rate 125000 bits/sec, 25 packets/sec

Loopback0 is up, line protocol is up
  Interface state transitions: 1
  Hardware is Loopback interface(s)
  Internet address is 172.16.1.1/32
  MTU 1500 bytes, BW 0 Kbit
  5 minute input rate 0 bits/sec, 0 packets/sec
  5 minute output rate 0 bits/sec, 0 packets/sec
`

// BundleOutput is "show bundle" with one two-member LAG.
const BundleOutput = `
Bundle-Ether200
  Status:                                    Up
  Local links <active/standby/configured>:   2 / 0 / 2
  Local bandwidth <effective/available>:     2000000 (2000000) kbps
  MAC address (source):                      5254.00ab.cdef (Chassis pool)
  Inter-chassis link:                        No
  Minimum active links / bandwidth:          1 / 1 kbps
  Maximum active links:                      64
  Wait while timer:                          2000 ms
  Load balancing:                            Default
  LACP:                                      Operational
    Flap suppression timer:                  Off

  Port                  Device           State        Port ID         B/W, kbps
  --------------------  ---------------  -----------  --------------  ----------
  Gi0/0/0/5             Local            Active       0x8000, 0x0002     1000000
  Gi0/0/0/6             Local            Active       0x8000, 0x0003     1000000
`
