//go:build ros2

package vehicle

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
	std_msgs "github.com/tiiuae/rclgo-msgs/std_msgs/msg"
	std_srvs "github.com/tiiuae/rclgo-msgs/std_srvs/srv"
	"github.com/tiiuae/rclgo/pkg/rclgo"
	"github.com/tiiuae/rclgo/pkg/rclgo/typemap"
)

// ROS2 reaches the autopilot and periphery through ROS 2: arming through the
// control_interface/arming service, every other actuation as a JSON command
// on the "mavlinkcmd" topic, and position from "navigation/global_position".
type ROS2 struct {
	rclContext *rclgo.Context
	node       *rclgo.Node
	arming     *rclgo.Client
	commands   *rclgo.Publisher

	mu           sync.Mutex
	position     globalPosition
	positionSeen bool
	armRequested bool
}

type globalPosition struct {
	Lat int32 `json:"lat"`
	Lon int32 `json:"lon"`
	Alt int32 `json:"alt"`
}

type actuation struct {
	Command   string    `json:"command"`
	Value     int32     `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// NewROS2 creates the ROS 2 node and its service clients and subscriptions.
func NewROS2(ctx context.Context, wg *sync.WaitGroup, deviceID string) (*ROS2, error) {
	rclArgs, err := rclgo.NewRCLArgs("")
	if err != nil {
		return nil, errors.WithMessage(err, "Could not parse ROS arguments")
	}
	rclContext, err := rclgo.NewContext(wg, 0, rclArgs)
	if err != nil {
		return nil, errors.WithMessage(err, "Could not create ROS context")
	}
	node, err := rclContext.NewNode("flightcontroller", deviceID)
	if err != nil {
		rclContext.Close()
		return nil, errors.WithMessage(err, "Could not create ROS node")
	}

	r := &ROS2{rclContext: rclContext, node: node}

	opt := &rclgo.ClientOptions{Qos: rclgo.NewRmwQosProfileServicesDefault()}
	r.arming, err = node.NewClient("control_interface/arming", std_srvs.SetBoolTypeSupport, opt)
	if err != nil {
		rclContext.Close()
		return nil, errors.WithMessage(err, "Could not create arming client")
	}
	ws, err := rclContext.NewWaitSet(200 * time.Millisecond)
	if err != nil {
		rclContext.Close()
		return nil, errors.WithMessage(err, "Could not create wait set")
	}
	ws.AddClients(r.arming)
	ws.RunGoroutine(ctx)

	r.commands, err = newPublisher(node, "mavlinkcmd", "std_msgs/String")
	if err != nil {
		rclContext.Close()
		return nil, err
	}

	err = r.subscribe(ctx, "navigation/global_position", r.handleGlobalPosition)
	if err != nil {
		rclContext.Close()
		return nil, err
	}
	err = r.subscribe(ctx, "control_interface/arm_request", r.handleArmRequest)
	if err != nil {
		rclContext.Close()
		return nil, err
	}

	return r, nil
}

func (r *ROS2) Close() {
	r.commands.Close()
	r.arming.Close()
	r.rclContext.Close()
}

func newPublisher(node *rclgo.Node, topicName string, messageType string) (*rclgo.Publisher, error) {
	ros2msg, ok := typemap.GetMessage(messageType)
	if !ok {
		return nil, errors.Errorf("Unable to map message type: %s", messageType)
	}
	opts := rclgo.NewDefaultPublisherOptions()
	opts.Qos.Reliability = rclgo.RmwQosReliabilityPolicySystemDefault
	pub, err := node.NewPublisher(topicName, ros2msg, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "Unable to create publisher %s", topicName)
	}
	return pub, nil
}

func (r *ROS2) subscribe(ctx context.Context, topicName string, handler func(string)) error {
	ros2msg, ok := typemap.GetMessage("std_msgs/String")
	if !ok {
		return errors.New("Unable to map message type: std_msgs/String")
	}
	sub, err := r.node.NewSubscription(topicName, ros2msg, func(s *rclgo.Subscription) {
		var m std_msgs.String
		_, err := s.TakeMessage(&m)
		if err != nil {
			log.Printf("TakeMessage failed: %s", topicName)
			return
		}
		handler(m.Data)
	})
	if err != nil {
		return errors.WithMessagef(err, "Unable to subscribe to topic %s", topicName)
	}

	go func() {
		err := sub.Spin(ctx, 5*time.Second)
		log.Printf("Subscription %s ended: %v", topicName, err)
	}()
	return nil
}

func (r *ROS2) handleGlobalPosition(data string) {
	var p globalPosition
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		log.Printf("Could not unmarshal position: %v", err)
		return
	}
	r.mu.Lock()
	r.position = p
	r.positionSeen = true
	r.mu.Unlock()
}

func (r *ROS2) handleArmRequest(data string) {
	r.mu.Lock()
	r.armRequested = true
	r.mu.Unlock()
}

func (r *ROS2) publish(command string, value int32) error {
	b, err := json.Marshal(actuation{Command: command, Value: value, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	msg := std_msgs.NewString()
	msg.Data = string(b)
	if err := r.commands.Publish(msg); err != nil {
		return errors.WithMessagef(err, "Could not publish %s", command)
	}
	return nil
}

func (r *ROS2) arm(ctx context.Context, permit bool) error {
	req := std_srvs.NewSetBool_Request()
	req.Data = permit
	res, _, err := r.arming.Send(ctx, req)
	if err != nil {
		return err
	}
	log.Printf("ROS2: ARMING %v: %v", permit, res)
	resp, ok := res.(*std_srvs.SetBool_Response)
	if ok && !resp.Success {
		return errors.Errorf("arming service refused: %s", resp.Message)
	}
	return nil
}

func (r *ROS2) Ready(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.positionSeen {
		return errors.New("no position received yet")
	}
	return nil
}

func (r *ROS2) GetCoords(ctx context.Context) (int32, int32, int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.positionSeen {
		return 0, 0, 0, errors.New("no position received yet")
	}
	return r.position.Lat, r.position.Lon, r.position.Alt, nil
}

func (r *ROS2) SetKillSwitch(ctx context.Context, enable bool) error {
	return r.publish("kill_switch", boolValue(enable))
}

func (r *ROS2) SetCargoLock(ctx context.Context, locked bool) error {
	return r.publish("cargo_lock", boolValue(locked))
}

func (r *ROS2) EnableBuzzer(ctx context.Context) error {
	return r.publish("buzzer", 1)
}

func (r *ROS2) WaitForArmRequest(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.armRequested {
		return errors.New("no pending arm request")
	}
	r.armRequested = false
	return nil
}

func (r *ROS2) PermitArm(ctx context.Context) error {
	return r.arm(ctx, true)
}

func (r *ROS2) ForbidArm(ctx context.Context) error {
	return r.arm(ctx, false)
}

func (r *ROS2) PauseFlight(ctx context.Context) error {
	return r.publish("pause", 0)
}

func (r *ROS2) ResumeFlight(ctx context.Context) error {
	return r.publish("resume", 0)
}

func (r *ROS2) ChangeAltitude(ctx context.Context, altitude int32) error {
	return r.publish("change_altitude", altitude)
}

func (r *ROS2) ChangeSpeed(ctx context.Context, speed int32) error {
	return r.publish("change_speed", speed)
}

func boolValue(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
